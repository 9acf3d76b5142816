package testkit

import (
	"errors"
	"testing"
)

func TestCheckOutputInvariants(t *testing.T) {
	ok := []string{
		"",
		"var x=1",
		"if(true){}",
		"{a:1,\nb:[2]}",
		`f('(',"}")`,
		`'it\'s'`,
	}
	for _, text := range ok {
		if err := CheckOutputInvariants(text); err != nil {
			t.Fatalf("%q: unexpected error %v", text, err)
		}
	}

	bad := []struct {
		text   string
		offset Offset
	}{
		{" x", 0},
		{"x\n", 1},
		{"f(]", 2},
		{"{a:1", 0},
		{"a)", 1},
		{`"open`, 0},
	}
	for _, tc := range bad {
		err := CheckOutputInvariants(tc.text)
		var ie *InvariantError
		if !errors.As(err, &ie) {
			t.Fatalf("%q: expected InvariantError, got %v", tc.text, err)
		}
		if ie.Offset != tc.offset {
			t.Fatalf("%q: want offset %d, got %d (%s)", tc.text, tc.offset, ie.Offset, ie.Msg)
		}
	}
}

func TestCheckFormattingOnlyAddsNewlines(t *testing.T) {
	if err := CheckFormattingOnlyAddsNewlines("{a:1,b:2}", "{a:1,\nb:2}"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	err := CheckFormattingOnlyAddsNewlines("{a:1,b:2}", "{a:1, b:2}")
	var ie *InvariantError
	if !errors.As(err, &ie) || ie.Offset != 5 {
		t.Fatalf("expected mismatch at offset 5, got %v", err)
	}
}
