// Package lexer provides the character- and token-level front end of the C--
// compiler: position tracking for one open source file (FileContext) and a
// preprocessing-token scanner that the preprocessor drives.
package lexer

import "strconv"

// Position represents a location in the source code.
//
// Line is the physical line, the one a text editor shows. LogicalLine is the
// line after folding escaped (backslash-newline) continuations, so a
// directive spread over three physical lines has one logical line.
// Invariant: LogicalLine <= Line.
type Position struct {
	// Filename is the name of the source file.
	Filename string

	// Line is the 1-based physical line number.
	Line int

	// Column is the 1-based byte column within the physical line.
	Column int

	// LogicalLine is the 1-based line number with continuations folded.
	LogicalLine int

	// Offset is the 0-based byte offset from the start of the file,
	// counting the bytes of elided continuations.
	Offset int
}

// String returns "filename:line:column", the GCC/Clang diagnostic format.
func (p Position) String() string {
	return p.Filename + ":" + strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Column)
}

// IsValid reports whether the position has a line number.
// The zero Position is invalid.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Before reports whether p comes before other. Offsets are the source of
// truth; line and column are derived from them.
func (p Position) Before(other Position) bool {
	return p.Offset < other.Offset
}

// After reports whether p comes after other.
func (p Position) After(other Position) bool {
	return p.Offset > other.Offset
}

// Span represents a range in the source code from Start to End (inclusive).
type Span struct {
	Start Position
	End   Position
}

// String returns "filename:startLine:startCol-endLine:endCol", shortened to
// "filename:line:startCol-endCol" when the span sits on one line.
func (s Span) String() string {
	if s.Start.Line == s.End.Line {
		return s.Start.Filename + ":" + strconv.Itoa(s.Start.Line) + ":" +
			strconv.Itoa(s.Start.Column) + "-" + strconv.Itoa(s.End.Column)
	}
	return s.Start.String() + "-" + strconv.Itoa(s.End.Line) + ":" + strconv.Itoa(s.End.Column)
}

// IsValid reports whether both ends are valid and ordered.
func (s Span) IsValid() bool {
	return s.Start.IsValid() && s.End.IsValid() && !s.End.Before(s.Start)
}

// Contains reports whether pos lies within the span (inclusive).
func (s Span) Contains(pos Position) bool {
	return !pos.Before(s.Start) && !pos.After(s.End)
}

// Length returns the number of bytes covered by the span.
func (s Span) Length() int {
	if !s.IsValid() {
		return 0
	}
	return s.End.Offset - s.Start.Offset
}
