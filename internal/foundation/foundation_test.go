package foundation

import (
	"errors"
	"testing"
)

func TestResult(t *testing.T) {
	t.Run("Ok result", func(t *testing.T) {
		result := Ok[string, error]("success")

		if !result.IsOk() {
			t.Error("Expected result to be Ok")
		}

		if result.IsErr() {
			t.Error("Expected result to not be Err")
		}

		if result.Unwrap() != "success" {
			t.Error("Expected unwrap to return 'success'")
		}
	})

	t.Run("Err result", func(t *testing.T) {
		testErr := errors.New("test error")
		result := Err[string, error](testErr)

		if result.IsOk() {
			t.Error("Expected result to not be Ok")
		}

		if !result.IsErr() {
			t.Error("Expected result to be Err")
		}

		if !errors.Is(result.UnwrapErr(), testErr) {
			t.Error("Expected unwrap error to match test error")
		}
	})

	t.Run("Map operation", func(t *testing.T) {
		result := Ok[int, error](5)
		mapped := Map(result, func(i int) string {
			return "value is " + string(rune(i+'0'))
		})

		if !mapped.IsOk() {
			t.Error("Expected mapped result to be Ok")
		}
	})

	t.Run("FromTuple", func(t *testing.T) {
		result := FromTuple[string, error]("test", nil)
		if !result.IsOk() {
			t.Error("Expected result from successful tuple to be Ok")
		}

		testErr := errors.New("test error")
		result = FromTuple[string, error]("", testErr)
		if !result.IsErr() {
			t.Error("Expected result from error tuple to be Err")
		}
	})
}

func TestOption(t *testing.T) {
	t.Run("Some option", func(t *testing.T) {
		option := Some("value")

		if !option.IsSome() {
			t.Error("Expected option to be Some")
		}

		if option.IsNone() {
			t.Error("Expected option to not be None")
		}

		if option.Unwrap() != "value" {
			t.Error("Expected unwrap to return 'value'")
		}
	})

	t.Run("None option", func(t *testing.T) {
		option := None[string]()

		if option.IsSome() {
			t.Error("Expected option to not be Some")
		}

		if !option.IsNone() {
			t.Error("Expected option to be None")
		}

		if option.UnwrapOr("default") != "default" {
			t.Error("Expected unwrap or to return 'default'")
		}
	})

	t.Run("FromPointer", func(t *testing.T) {
		value := "test"
		option := FromPointer(&value)
		if !option.IsSome() {
			t.Error("Expected option from non-nil pointer to be Some")
		}

		var nilPtr *string
		option = FromPointer(nilPtr)
		if !option.IsNone() {
			t.Error("Expected option from nil pointer to be None")
		}
	})
}

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(ErrorCodeInvalidVersion, "test message").
			WithSeverity(SeverityWarning).
			WithComponent("test").
			Build()

		if err.Code != ErrorCodeInvalidVersion {
			t.Error("Expected invalid_version error code")
		}

		if err.Severity != SeverityWarning {
			t.Error("Expected warning severity")
		}

		if err.Component != "test" {
			t.Error("Expected component to be 'test'")
		}
	})

	t.Run("Error detection", func(t *testing.T) {
		err := InvalidVersionError("bad version string").Build()

		if !IsErrorCode(err, ErrorCodeInvalidVersion) {
			t.Error("Expected error to be invalid_version error")
		}

		var classified *ClassifiedError
		if !AsClassified(err, &classified) {
			t.Error("Expected to extract classified error")
		}

		if classified.Code != ErrorCodeInvalidVersion {
			t.Error("Expected extracted error to have invalid_version code")
		}
	})

	t.Run("NoCrateVersions carries crate context", func(t *testing.T) {
		err := NoCrateVersionsError("rgb").Build()

		if err.Context["crate"] != "rgb" {
			t.Error("Expected crate context field to be set")
		}
		if !err.UserFacing {
			t.Error("Expected NoCrateVersionsError to be user facing")
		}
	})

	t.Run("HTTP errors are retryable", func(t *testing.T) {
		err := HTTPError("connection reset").Build()
		if !err.IsRetryable() {
			t.Error("Expected HTTPError to be retryable")
		}
	})
}
