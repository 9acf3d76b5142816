package diag

import (
	"cmp"
	"math"
	"slices"

	"fortio.org/safecast"
)

// Bag collects the diagnostics of one compile, up to a limit. Diagnostics
// past the limit are counted, not stored.
type Bag struct {
	items   []Diagnostic
	max     uint16
	dropped int
}

// NewBag creates a bag holding at most max diagnostics. Values outside the
// uint16 range are clamped.
func NewBag(max int) *Bag {
	limit, err := safecast.Conv[uint16](max)
	if err != nil {
		limit = math.MaxUint16
		if max < 0 {
			limit = 0
		}
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(int(limit), 64)),
		max:   limit,
	}
}

// Add appends d unless the limit is reached, and reports whether it was kept.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Pin appends d even when the bag is full.
func (b *Bag) Pin(d Diagnostic) {
	b.items = append(b.items, d)
}

func (b *Bag) Cap() uint16 {
	return b.max
}

// Dropped is the number of diagnostics rejected by the limit.
func (b *Bag) Dropped() int {
	return b.dropped
}

// Worst returns the highest severity in the bag; ok is false when it is empty.
func (b *Bag) Worst() (sev Severity, ok bool) {
	for i := range b.items {
		if !ok || b.items[i].Severity > sev {
			sev, ok = b.items[i].Severity, true
		}
	}
	return sev, ok
}

// HasErrors reports whether any diagnostic has Severity >= Error.
func (b *Bag) HasErrors() bool {
	sev, ok := b.Worst()
	return ok && sev >= SevError
}

// HasWarnings reports whether any diagnostic has Severity >= Warning.
func (b *Bag) HasWarnings() bool {
	sev, ok := b.Worst()
	return ok && sev >= SevWarning
}

// Counts returns the number of stored diagnostics per severity.
func (b *Bag) Counts() map[Severity]int {
	counts := make(map[Severity]int, len(severityNames))
	for i := range b.items {
		counts[b.items[i].Severity]++
	}
	return counts
}

func (b *Bag) Len() int {
	return len(b.items)
}

// Items returns the bag's backing slice. Do not modify it.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Merge appends diagnostics from other, growing max if needed. Drop counts
// add up.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	if total := len(b.items) + len(other.items); total > int(b.max) {
		b.max = uint16(min(total, math.MaxUint16))
	}
	for _, d := range other.items {
		b.Add(d)
	}
	b.dropped += other.dropped
}

// Sort orders diagnostics by file, line, severity (desc), code (asc) for
// stable output.
func (b *Bag) Sort() {
	slices.SortStableFunc(b.items, func(x, y Diagnostic) int {
		return cmp.Or(
			cmp.Compare(x.Primary.File, y.Primary.File),
			cmp.Compare(x.Primary.Line, y.Primary.Line),
			cmp.Compare(y.Severity, x.Severity),
			cmp.Compare(x.Code, y.Code),
		)
	})
}
