package trace

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Format is how a sink writes events.
type Format uint8

const (
	FormatAuto Format = iota // decided by the output path
	FormatText
	FormatNDJSON
)

// FormatEvent renders one event as a line, newline included.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return appendJSON(nil, ev)
	}
	return appendText(nil, ev)
}

const jsonTime = "2006-01-02T15:04:05.000000Z07:00"

func appendJSON(buf []byte, ev *Event) []byte {
	rec := struct {
		Time     string            `json:"time"`
		Seq      uint64            `json:"seq"`
		Kind     string            `json:"kind"`
		Scope    string            `json:"scope"`
		SpanID   uint64            `json:"span_id,omitempty"`
		ParentID uint64            `json:"parent_id,omitempty"`
		Depth    int               `json:"depth,omitempty"`
		Name     string            `json:"name"`
		Detail   string            `json:"detail,omitempty"`
		Extra    map[string]string `json:"extra,omitempty"`
	}{
		ev.Time.Format(jsonTime), ev.Seq, ev.Kind.String(), ev.Scope.String(),
		ev.SpanID, ev.ParentID, ev.Depth, ev.Name, ev.Detail, ev.Extra,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		// strings and integers only; kept for completeness
		data = []byte(`{"seq":` + strconv.FormatUint(ev.Seq, 10) + `,"error":` + strconv.Quote(err.Error()) + `}`)
	}
	buf = append(buf, data...)
	return append(buf, '\n')
}

var kindMarks = [...]string{KindSpanBegin: "→ ", KindSpanEnd: "← ", KindPoint: "• "}

// appendText writes "[seq] <indent><mark>name (detail) {k=v, ...}". Node
// events indent two spaces per tree level; child spans indent once.
func appendText(buf []byte, ev *Event) []byte {
	seq := strconv.FormatUint(ev.Seq, 10)
	buf = append(buf, '[')
	buf = append(buf, strings.Repeat(" ", max(6-len(seq), 0))...)
	buf = append(buf, seq...)
	buf = append(buf, "] "...)

	indent := 0
	if ev.Scope == ScopeNode {
		indent = ev.Depth
	} else if ev.ParentID > 0 {
		indent = 1
	}
	buf = append(buf, strings.Repeat("  ", indent)...)
	if int(ev.Kind) < len(kindMarks) {
		buf = append(buf, kindMarks[ev.Kind]...)
	}
	buf = append(buf, ev.Name...)
	if ev.Detail != "" {
		buf = append(buf, " ("...)
		buf = append(buf, ev.Detail...)
		buf = append(buf, ')')
	}
	for i, k := range slices.Sorted(maps.Keys(ev.Extra)) {
		sep := ", "
		if i == 0 {
			sep = " {"
		}
		buf = append(buf, sep...)
		buf = append(buf, k...)
		buf = append(buf, '=')
		buf = append(buf, ev.Extra[k]...)
	}
	if len(ev.Extra) > 0 {
		buf = append(buf, '}')
	}
	return append(buf, '\n')
}
