package testkit

import (
	"fmt"
	"strings"
	"unicode"

	"fortio.org/safecast"
)

// Offset is a byte position in emitted text.
type Offset uint32

// InvariantError describes the first violated output invariant.
type InvariantError struct {
	Offset Offset
	Msg    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

var closerFor = map[byte]byte{'(': ')', '{': '}', '[': ']'}

// CheckOutputInvariants runs a minimal set of invariants on emitted text:
// 1) no leading or trailing whitespace
// 2) (), {} and [] are balanced and properly nested outside string literals
// 3) every string literal is closed
func CheckOutputInvariants(text string) error {
	if _, err := safecast.Conv[uint32](len(text)); err != nil {
		return fmt.Errorf("output too large: %w", err)
	}
	if text == "" {
		return nil
	}

	// 1) no whitespace padding
	if unicode.IsSpace(rune(text[0])) {
		return &InvariantError{Offset: 0, Msg: "leading whitespace"}
	}
	if last := len(text) - 1; unicode.IsSpace(rune(text[last])) {
		return &InvariantError{Offset: offset(last), Msg: "trailing whitespace"}
	}

	// 2) + 3)
	var stack []int
	var quote byte
	quoteAt := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote, quoteAt = c, i
		case '(', '{', '[':
			stack = append(stack, i)
		case ')', '}', ']':
			if len(stack) == 0 {
				return &InvariantError{Offset: offset(i), Msg: fmt.Sprintf("unmatched %q", c)}
			}
			open := stack[len(stack)-1]
			if closerFor[text[open]] != c {
				return &InvariantError{Offset: offset(i), Msg: fmt.Sprintf("%q closes %q opened at %d", c, text[open], open)}
			}
			stack = stack[:len(stack)-1]
		}
	}
	if quote != 0 {
		return &InvariantError{Offset: offset(quoteAt), Msg: "unterminated string literal"}
	}
	if len(stack) > 0 {
		open := stack[len(stack)-1]
		return &InvariantError{Offset: offset(open), Msg: fmt.Sprintf("unclosed %q", text[open])}
	}
	return nil
}

// CheckFormattingOnlyAddsNewlines verifies that formatted output differs from
// compact output only by newlines written after separators.
func CheckFormattingOnlyAddsNewlines(compact, formatted string) error {
	stripped := strings.ReplaceAll(formatted, "\n", "")
	if stripped == compact {
		return nil
	}
	n := min(len(stripped), len(compact))
	i := 0
	for i < n && stripped[i] == compact[i] {
		i++
	}
	return &InvariantError{Offset: offset(i), Msg: "formatted output differs from compact output beyond newlines"}
}

func offset(i int) Offset {
	off, err := safecast.Conv[uint32](i)
	if err != nil {
		return Offset(^uint32(0))
	}
	return Offset(off)
}
