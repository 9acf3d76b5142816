package diag

// Reporter receives diagnostics while a tree compiles. *Bag, DedupReporter
// and ReporterFunc implement it.
type Reporter interface {
	Report(Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Diagnostic)

func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// Discard drops every diagnostic.
var Discard Reporter = ReporterFunc(func(Diagnostic) {})

// Report adds d to the bag, subject to its limit. A nil bag drops d.
func (b *Bag) Report(d Diagnostic) {
	if b != nil {
		b.Add(d)
	}
}

// Pending is a diagnostic being assembled. Nothing reaches the reporter until
// Emit.
type Pending struct {
	to   Reporter
	d    Diagnostic
	sent bool
}

func pending(to Reporter, sev Severity, code Code, at Location, msg string) *Pending {
	return &Pending{to: to, d: New(sev, code, at, msg)}
}

func ReportError(to Reporter, code Code, at Location, msg string) *Pending {
	return pending(to, SevError, code, at, msg)
}

func ReportWarning(to Reporter, code Code, at Location, msg string) *Pending {
	return pending(to, SevWarning, code, at, msg)
}

func ReportInfo(to Reporter, code Code, at Location, msg string) *Pending {
	return pending(to, SevInfo, code, at, msg)
}

// Note attaches a secondary location.
func (p *Pending) Note(at Location, msg string) *Pending {
	p.d.Notes = append(p.d.Notes, Note{At: at, Msg: msg})
	return p
}

// Emit hands the diagnostic to the reporter. Later calls do nothing.
func (p *Pending) Emit() {
	if p.sent {
		return
	}
	p.sent = true
	if p.to != nil {
		p.to.Report(p.d)
	}
}
