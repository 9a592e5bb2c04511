package profiler

import "strings"

// lexState is the scanner state threaded through every character-level walk
// over SQL text. It is a value: advance returns the next state and never
// mutates the receiver.
type lexState struct {
	inString bool
	delim    byte // quote that opened the current string
	depth    int  // unmatched '(' seen outside strings
}

// advance returns the state after consuming c, where prev is the character
// immediately before c (0 at the start of the text).
//
// A quote preceded by a backslash is treated as escaped. Only one character
// is inspected, so a string ending in a literal backslash (`'a\\'`) keeps the
// scanner inside the string until the next unescaped delimiter.
func (s lexState) advance(c, prev byte) lexState {
	if (c == '\'' || c == '"') && prev != '\\' {
		switch {
		case !s.inString:
			s.inString, s.delim = true, c
		case c == s.delim:
			s.inString = false
		}
	}
	if !s.inString {
		switch c {
		case '(':
			s.depth++
		case ')':
			s.depth--
		}
	}
	return s
}

// findClosingParen returns the index of the ')' matching the '(' at open,
// skipping parentheses inside string literals. It returns -1 when the text
// ends before the parenthesis is balanced.
func findClosingParen(s string, open int) int {
	st := lexState{depth: 1}
	for i := open + 1; i < len(s); i++ {
		st = st.advance(s[i], s[i-1])
		if st.depth == 0 {
			return i
		}
	}
	return -1
}

// inStringAt reports whether the byte at offset i of s lies inside a string
// literal.
func inStringAt(s string, i int) bool {
	var st lexState
	for j := 0; j < i && j < len(s); j++ {
		var prev byte
		if j > 0 {
			prev = s[j-1]
		}
		st = st.advance(s[j], prev)
	}
	return st.inString
}

// SplitColumns splits a projection list on the commas that separate its
// columns. Commas inside string literals, function calls or subqueries are
// kept. Every column is trimmed and empty columns are dropped.
func SplitColumns(list string) []string {
	var (
		cols  []string
		start int
		st    lexState
	)
	for i := 0; i < len(list); i++ {
		var prev byte
		if i > 0 {
			prev = list[i-1]
		}
		st = st.advance(list[i], prev)
		if list[i] == ',' && st.depth == 0 && !st.inString {
			cols = appendColumn(cols, list[start:i])
			start = i + 1
		}
	}
	return appendColumn(cols, list[start:])
}

func appendColumn(cols []string, col string) []string {
	if col = strings.TrimSpace(col); col != "" {
		cols = append(cols, col)
	}
	return cols
}

// tightenParens drops a single space that follows '(' or precedes ')'
// outside string literals. It expects whitespace already collapsed.
func tightenParens(s string) string {
	if !strings.Contains(s, "( ") && !strings.Contains(s, " )") {
		return s
	}
	var (
		b  strings.Builder
		st lexState
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		var prev byte
		if i > 0 {
			prev = s[i-1]
		}
		st = st.advance(s[i], prev)
		if s[i] == ' ' && !st.inString {
			if prev == '(' || (i+1 < len(s) && s[i+1] == ')') {
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
