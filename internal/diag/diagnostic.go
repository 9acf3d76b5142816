package diag

// Note is a secondary location attached to a diagnostic, such as the first
// assignment when a definition has two.
type Note struct {
	At  Location `json:"at" msgpack:"at"`
	Msg string   `json:"msg" msgpack:"msg"`
}

type Diagnostic struct {
	Severity Severity `json:"severity" msgpack:"severity"`
	Code     Code     `json:"code" msgpack:"code"`
	Message  string   `json:"message" msgpack:"message"`
	Primary  Location `json:"primary" msgpack:"primary"`
	Notes    []Note   `json:"notes,omitempty" msgpack:"notes,omitempty"`
}

func New(sev Severity, code Code, primary Location, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}
