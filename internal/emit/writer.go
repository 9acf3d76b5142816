package emit

// Writer accumulates emitted text. Formatted output differs from compact
// output only by the newline written after separators.
type Writer struct {
	buf       []byte
	formatted bool
}

// NewWriter creates a writer; sizeHint preallocates the buffer.
func NewWriter(formatted bool, sizeHint int) *Writer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Writer{buf: make([]byte, 0, sizeHint), formatted: formatted}
}

// Bytes returns the accumulated output.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) String() string {
	return string(w.buf)
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// WriteString writes s verbatim.
func (w *Writer) WriteString(s string) {
	w.buf = append(w.buf, s...)
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// Separator writes sep followed by a newline in formatted mode.
func (w *Writer) Separator(sep string) {
	w.buf = append(w.buf, sep...)
	if w.formatted {
		w.buf = append(w.buf, '\n')
	}
}
