package report

import "strings"

// Box-drawing glyphs for the five-column table.
const (
	glyphHorizontal   = "─"
	glyphVertical     = "│"
	glyphTopLeft      = "┌"
	glyphTopMid       = "┬"
	glyphTopRight     = "┐"
	glyphMidLeft      = "├"
	glyphCross        = "┼"
	glyphMidRight     = "┤"
	glyphBottomLeft   = "└"
	glyphBottomMid    = "┴"
	glyphBottomRight  = "┘"
)

// segment repeats glyphHorizontal n times, one rune per display column.
func segment(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat(glyphHorizontal, n)
}

// borderLine builds one full-width border row from left/mid/right
// corner glyphs and the five column widths. This is a from-scratch
// generator (DESIGN.md Open Question 3): original_source's
// console_tables.rs computed corner/padding arithmetic ad hoc per call
// site and disagreed with itself across header/separator/footer; here
// a single function is the only place column widths become a border,
// so every border line is width-consistent by construction.
func borderLine(left, mid, right string, w Widths) string {
	var b strings.Builder
	b.WriteString(left)
	b.WriteString(segment(w.Offered))
	b.WriteString(mid)
	b.WriteString(segment(w.Spec))
	b.WriteString(mid)
	b.WriteString(segment(w.Resolved))
	b.WriteString(mid)
	b.WriteString(segment(w.Dependent))
	b.WriteString(mid)
	b.WriteString(segment(w.Result))
	b.WriteString(right)
	return b.String()
}

// TopBorder, MidBorder, and BottomBorder are the three horizontal
// rules a table needs: opening, between header and body (also reused
// between dependents as a separator), and closing.
func TopBorder(w Widths) string    { return borderLine(glyphTopLeft, glyphTopMid, glyphTopRight, w) }
func MidBorder(w Widths) string    { return borderLine(glyphMidLeft, glyphCross, glyphMidRight, w) }
func BottomBorder(w Widths) string { return borderLine(glyphBottomLeft, glyphBottomMid, glyphBottomRight, w) }

// DisplayWidth returns the measured display width (in columns, not
// bytes) of a border line produced by this package — the sum of the
// five column widths plus one separator/corner glyph per boundary (6
// boundaries total for 5 columns).
func DisplayWidth(w Widths) int {
	return w.Offered + w.Spec + w.Resolved + w.Dependent + w.Result + 6
}
