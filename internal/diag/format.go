package diag

import (
	"cmp"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// shortLine is one rendered diagnostic or note.
type shortLine struct {
	label string
	code  string
	path  string
	line  int
	kind  string
	msg   string
}

var labelColors = map[string]*color.Color{
	"error":   color.New(color.FgRed, color.Bold),
	"warning": color.New(color.FgYellow, color.Bold),
	"note":    color.New(color.FgCyan),
}

// FormatShortDiagnostics renders one line per diagnostic, sorted, for golden
// files and CLI output:
//
//	warning EMT1002 app/main.json:12 operation: operator "FOO" not found
//
// Notes become their own "note" lines when includeNotes is set.
func FormatShortDiagnostics(diags []Diagnostic, includeNotes bool) string {
	lines := shortLines(diags, includeNotes)
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = string(l.appendTo(nil, l.label))
	}
	return strings.Join(parts, "\n")
}

// WriteColored is FormatShortDiagnostics with colored labels and a newline
// after every line. Coloring follows color.NoColor.
func WriteColored(w io.Writer, diags []Diagnostic, includeNotes bool) error {
	var buf []byte
	for _, l := range shortLines(diags, includeNotes) {
		label := l.label
		if c, ok := labelColors[label]; ok {
			label = c.Sprint(label)
		}
		buf = append(l.appendTo(buf, label), '\n')
	}
	_, err := w.Write(buf)
	return err
}

func (l shortLine) appendTo(buf []byte, label string) []byte {
	buf = append(buf, label...)
	buf = append(buf, ' ')
	buf = append(buf, l.code...)
	buf = append(buf, ' ')
	buf = append(buf, l.path...)
	if l.line > 0 {
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, int64(l.line), 10)
	}
	buf = append(buf, ' ')
	if l.kind != "" {
		buf = append(buf, l.kind...)
		buf = append(buf, ": "...)
	}
	return append(buf, l.msg...)
}

func shortLines(diags []Diagnostic, includeNotes bool) []shortLine {
	var lines []shortLine
	for _, d := range diags {
		code := d.Code.ID()
		lines = append(lines, lineAt(d.Severity.String(), code, d.Primary, d.Message))
		if includeNotes {
			for _, n := range d.Notes {
				lines = append(lines, lineAt("note", code, n.At, n.Msg))
			}
		}
	}
	slices.SortStableFunc(lines, func(a, b shortLine) int {
		return cmp.Or(
			cmp.Compare(a.path, b.path),
			cmp.Compare(a.line, b.line),
			cmp.Compare(a.label, b.label),
			cmp.Compare(a.code, b.code),
			cmp.Compare(a.msg, b.msg),
		)
	})
	return lines
}

func lineAt(label, code string, at Location, msg string) shortLine {
	return shortLine{
		label: label,
		code:  code,
		path:  displayFile(at.File),
		line:  at.Line,
		kind:  at.Kind,
		msg:   oneLine(msg),
	}
}

// displayFile is the slash form of path without leading "./"; "<tree>" when
// the diagnostic has no file.
func displayFile(path string) string {
	if path == "" {
		return "<tree>"
	}
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return p
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func oneLine(msg string) string {
	return strings.TrimSpace(lineBreaks.Replace(msg))
}
