package lexer

import (
	"bufio"
	"errors"
	"io"
)

// FileContext tracks the read position inside one open source file.
//
// It keeps two row counters. The physical row is what an editor shows; the
// logical row only moves at an unescaped newline, so a line ending in a
// backslash and the line after it share one logical row. Next elides every
// backslash-newline pair (LF or CRLF), which is how line continuations disappear from the
// character stream seen by the scanner and the preprocessor.
//
// USAGE:
//
//	fc := lexer.NewFileContext(f, "main.c", 1, 1)
//	for {
//		ch, pos, err := fc.Next()
//		...
//	}
type FileContext struct {
	src      *bufio.Reader
	filename string

	// line holds the bytes of the current physical line consumed so far.
	line []byte

	row        int
	col        int
	logicalRow int
	offset     int
}

// NewFileContext starts position tracking at (row, col). Physical and logical
// row both begin at row.
func NewFileContext(r io.Reader, filename string, row, col int) *FileContext {
	return &FileContext{
		src:        bufio.NewReader(r),
		filename:   filename,
		row:        row,
		col:        col,
		logicalRow: row,
	}
}

// Advance records that ch was consumed.
// An unescaped newline moves both rows; anything else moves the column.
func (fc *FileContext) Advance(ch byte) {
	fc.offset++
	if ch == '\n' {
		fc.row++
		fc.logicalRow++
		fc.col = 1
		fc.line = fc.line[:0]
		return
	}
	fc.col++
	fc.line = append(fc.line, ch)
}

// AdvanceEscapedNewline records that a backslash-newline pair was consumed.
// Only the physical row moves.
func (fc *FileContext) AdvanceEscapedNewline() {
	fc.advanceContinuation(2)
}

// advanceContinuation is AdvanceEscapedNewline for a continuation of width
// bytes; a backslash before CRLF is three.
func (fc *FileContext) advanceContinuation(width int) {
	fc.offset += width
	fc.row++
	fc.col = 1
	fc.line = fc.line[:0]
}

// continuation reports how many bytes after a backslash form a line break:
// 1 for "\n", 2 for "\r\n" and 0 when the backslash is an ordinary character.
func continuation(after []byte) int {
	switch {
	case len(after) >= 1 && after[0] == '\n':
		return 1
	case len(after) >= 2 && after[0] == '\r' && after[1] == '\n':
		return 2
	}
	return 0
}

// Next returns the next character and the position where it starts.
// Backslash-newline pairs, LF or CRLF, are consumed silently. At end of input it returns
// io.EOF; other read errors are returned unchanged.
func (fc *FileContext) Next() (byte, Position, error) {
	for {
		ch, err := fc.src.ReadByte()
		if err != nil {
			return 0, fc.Pos(), err
		}
		if ch == '\\' {
			nxt, err := fc.src.Peek(2)
			if err != nil && !errors.Is(err, io.EOF) {
				return 0, fc.Pos(), err
			}
			if w := continuation(nxt); w > 0 {
				_, _ = fc.src.Discard(w)
				fc.advanceContinuation(1 + w)
				continue
			}
		}
		pos := fc.Pos()
		fc.Advance(ch)
		return ch, pos, nil
	}
}

// Peek returns the character the next call to Next would return, without
// consuming anything.
func (fc *FileContext) Peek() (byte, error) {
	n := 0
	for {
		buf, err := fc.src.Peek(n + 1)
		if len(buf) < n+1 {
			if err == nil {
				err = io.EOF
			}
			return 0, err
		}
		if buf[n] != '\\' {
			return buf[n], nil
		}
		buf, err = fc.src.Peek(n + 3)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		w := continuation(buf[n+1:])
		if w == 0 {
			return '\\', nil
		}
		n += 1 + w
	}
}

// Pos returns the position of the next character.
func (fc *FileContext) Pos() Position {
	return Position{
		Filename:    fc.filename,
		Line:        fc.row,
		Column:      fc.col,
		LogicalLine: fc.logicalRow,
		Offset:      fc.offset,
	}
}

// Filename returns the display name given at construction.
func (fc *FileContext) Filename() string { return fc.filename }

// Row returns the physical row of the next character.
func (fc *FileContext) Row() int { return fc.row }

// Col returns the column of the next character.
func (fc *FileContext) Col() int { return fc.col }

// LogicalRow returns the logical row of the next character.
func (fc *FileContext) LogicalRow() int { return fc.logicalRow }

// Line returns the text of the current physical line consumed so far.
func (fc *FileContext) Line() string { return string(fc.line) }
