// Package errwriter wraps an io.Writer so a sequence of writes (each
// individually easy to forget to check, as in a print loop) can be
// error-checked once at the end instead of after every call.
package errwriter

import (
	"io"

	"github.com/pkg/errors"
)

// Writer tracks the first write error seen and short-circuits once it
// has one: every call after a failure keeps returning that same error
// instead of writing again.
type Writer struct {
	w   io.Writer
	Err error
}

func (w *Writer) Write(p []byte) (n int, err error) {
	if w.Err != nil {
		return 0, w.Err
	}
	n, err = w.w.Write(p)
	if err != nil {
		w.Err = errors.Wrap(err, "write failed")
	}
	return n, w.Err
}

// New returns a new Writer wrapping w.
func New(w io.Writer) *Writer {
	return &Writer{w: w}
}
