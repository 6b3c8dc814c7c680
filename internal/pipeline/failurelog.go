package pipeline

import (
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/imazen/crusader/internal/foundation"
)

// FailureRecord is one durable failure-log entry (spec.md §4.5).
type FailureRecord struct {
	Dependent string
	Subject   string
	Label     string // "baseline", "this", or a version string
	Stage     string
	Command   string
	ExitCode  int
	Stdout    string
	Stderr    string
}

// FailureLogger appends FailureRecords to a configured log file under
// an exclusive advisory file lock, so concurrent workers never
// interleave a record (spec.md §4.5, gofrs/flock per the teacher's
// cross-process locking idiom).
type FailureLogger struct {
	path string
}

// NewFailureLogger returns a logger writing to path. The file and its
// parent directory are created lazily on first Append.
func NewFailureLogger(path string) *FailureLogger {
	return &FailureLogger{path: path}
}

// Append writes one bracketed record to the log file, acquiring an
// exclusive lock for the duration of the write.
func (l *FailureLogger) Append(record FailureRecord) *foundation.ClassifiedError {
	if l == nil {
		return nil
	}

	lock := flock.New(l.path + ".lock")
	if err := lock.Lock(); err != nil {
		return foundation.IOError("failed to acquire failure log lock").WithCause(err).Build()
	}
	defer lock.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return foundation.IOError("failed to open failure log " + l.path).WithCause(err).Build()
	}
	defer f.Close()

	if _, err := f.WriteString(format(record)); err != nil {
		return foundation.IOError("failed to write failure log " + l.path).WithCause(err).Build()
	}
	return nil
}

func format(r FailureRecord) string {
	return fmt.Sprintf(
		"===== %s %s =====\ndependent: %s\nsubject: %s\nlabel: %s\nstage: %s\ncommand: %s\nexit_code: %d\n----- stdout -----\n%s\n----- stderr -----\n%s\n=====\n\n",
		time.Now().UTC().Format(time.RFC3339), uuid.NewString(),
		r.Dependent, r.Subject, r.Label, r.Stage, r.Command, r.ExitCode, r.Stdout, r.Stderr,
	)
}
