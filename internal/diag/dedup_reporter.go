package diag

type dedupKey struct {
	code Code
	sev  Severity
	at   Location
	msg  string
}

// DedupReporter passes each distinct code, severity, location and message on
// once, so a tree repeating one unresolved operator on a line reports it
// once. Not safe for concurrent use; one per compile.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(d Diagnostic) {
	key := dedupKey{code: d.Code, sev: d.Severity, at: d.Primary, msg: d.Message}
	if _, dup := r.seen[key]; dup {
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}
