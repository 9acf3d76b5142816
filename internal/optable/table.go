// Package optable maps symbolic operator names ("ADD", "TYPEOF") to the
// literal tokens written in source ("+", "typeof").
//
// The emitter only reads a table. Build it fully (Default, Set, Merge,
// LoadFile) before handing it to concurrent compiles.
package optable

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Resolver is the lookup the emitter depends on.
type Resolver interface {
	Resolve(name string) (token string, ok bool)
}

// Table is a name -> token map.
type Table struct {
	byName map[string]string
}

func New() *Table {
	return &Table{byName: make(map[string]string)}
}

// FromTokens builds a table from a token -> name map, the orientation the
// upstream tokenizer configuration uses. Two tokens with the same name are an
// error because reverse lookup would be ambiguous.
func FromTokens(tokens map[string]string) (*Table, error) {
	t := New()
	for tok, name := range tokens {
		if prev, dup := t.byName[name]; dup && prev != tok {
			return nil, fmt.Errorf("optable: name %q maps to both %q and %q", name, prev, tok)
		}
		t.byName[name] = tok
	}
	return t, nil
}

func (t *Table) Set(name, token string) {
	t.byName[name] = token
}

func (t *Table) Resolve(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	tok, ok := t.byName[name]
	return tok, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byName)
}

// Merge copies other's entries over t's.
func (t *Table) Merge(other *Table) {
	if other == nil {
		return
	}
	for name, tok := range other.byName {
		t.byName[name] = tok
	}
}

// Names returns the operator names in sorted order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fingerprint is a stable digest of the table contents, used in cache keys.
func (t *Table) Fingerprint() string {
	h := sha256.New()
	for _, name := range t.Names() {
		fmt.Fprintf(h, "%s\x00%s\x00", name, t.byName[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}
