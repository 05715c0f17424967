package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureWriterWithinLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: 200, limit: 64}

	_, err := cw.Write([]byte(`{"open_time":"17:00"}`))
	require.NoError(t, err)

	assert.False(t, cw.overflowed())
	assert.Equal(t, `{"open_time":"17:00"}`, cw.buf.String())
	assert.Equal(t, `{"open_time":"17:00"}`, rec.Body.String())
}

// A body past the capture limit must be flagged so the middleware skips
// storing it: the buffer only holds a prefix, and replaying that prefix on
// a hit would hand clients a corrupt response.
func TestCaptureWriterOverflowIsNotStorable(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: 200, limit: 8}

	_, err := cw.Write([]byte("12345"))
	require.NoError(t, err)
	assert.False(t, cw.overflowed())

	_, err = cw.Write([]byte("6789AB"))
	require.NoError(t, err)

	assert.True(t, cw.overflowed())
	// The client still receives everything; only the capture is cut.
	assert.Equal(t, "123456789AB", rec.Body.String())
	assert.Equal(t, "12345678", cw.buf.String())
}

func TestCaptureWriterNoLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: 200, limit: 0}

	_, err := cw.Write(make([]byte, 1<<16))
	require.NoError(t, err)

	assert.False(t, cw.overflowed())
	assert.Equal(t, 1<<16, cw.buf.Len())
}
