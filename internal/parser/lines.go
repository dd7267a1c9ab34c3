package parser

import (
	"bufio"
	"io"
	"strings"
)

const maxLineSize = 4 * 1024 * 1024

// lines is a forward-only line iterator with one line of lookahead.
// Line numbers are 1-based and refer to the last line returned by next.
type lines struct {
	sc *bufio.Scanner

	num int

	peeked   bool
	peekText string
	peekNum  int
	peekOK   bool

	read int
}

func newLines(r io.Reader) *lines {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lines{sc: sc}
}

func (l *lines) scan() (string, int, bool) {
	if !l.sc.Scan() {
		return "", l.read, false
	}
	l.read++
	return strings.TrimRight(l.sc.Text(), "\r\n"), l.read, true
}

// next returns the following raw line with only line terminators removed.
func (l *lines) next() (string, bool) {
	if l.peeked {
		l.peeked = false
		l.num = l.peekNum
		return l.peekText, l.peekOK
	}
	text, num, ok := l.scan()
	l.num = num
	return text, ok
}

// peek returns the following raw line without consuming it.
func (l *lines) peek() (string, bool) {
	if !l.peeked {
		l.peekText, l.peekNum, l.peekOK = l.scan()
		l.peeked = true
	}
	return l.peekText, l.peekOK
}

// nextContent returns the following trimmed line, skipping blank lines and
// ';' comments.
func (l *lines) nextContent() (string, bool) {
	for {
		text, ok := l.next()
		if !ok {
			return "", false
		}
		if text = strings.TrimSpace(text); isContent(text) {
			return text, true
		}
	}
}

// peekContent is nextContent without consuming the returned line. Skipped
// blank and comment lines are consumed.
func (l *lines) peekContent() (string, bool) {
	for {
		text, ok := l.peek()
		if !ok {
			return "", false
		}
		if text = strings.TrimSpace(text); isContent(text) {
			return text, true
		}
		l.next()
	}
}

func (l *lines) line() int {
	return l.num
}

func (l *lines) err() error {
	return l.sc.Err()
}

func isContent(text string) bool {
	return text != "" && !strings.HasPrefix(text, ";")
}
