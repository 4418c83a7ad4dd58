package blobstore

import (
	"io"

	"github.com/avolkov/cryptbucket/internal/errs"
)

// LimitedWriter enforces a cumulative byte ceiling on a write stream. The
// limit is checked before any byte of an offending write lands, so the
// underlying sink never exceeds the ceiling regardless of chunk boundaries.
type LimitedWriter struct {
	w       io.Writer
	limit   int64
	written int64
}

// NewLimitedWriter wraps w with a ceiling of limit bytes.
func NewLimitedWriter(w io.Writer, limit int64) *LimitedWriter {
	return &LimitedWriter{w: w, limit: limit}
}

// Write forwards to the underlying writer unless the ceiling would be crossed.
func (lw *LimitedWriter) Write(p []byte) (int, error) {
	if lw.written+int64(len(p)) > lw.limit {
		return 0, errs.User("BLOB_SIZE_EXCEEDS_LIMIT", "Rejected attempt to write file larger than allowed")
	}
	n, err := lw.w.Write(p)
	lw.written += int64(n)
	return n, err
}

// BytesWritten reports the cumulative bytes accepted so far.
func (lw *LimitedWriter) BytesWritten() int64 { return lw.written }
