package middleware

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/evaldeck/console/internal/api/response"
)

// http.MaxBytesReader reports this message when the cap is hit.
const errRequestBodyTooLarge = "http: request body too large"

// Dataset uploads and evaluation submissions are the only oversized-body
// candidates; GET/DELETE never carry one worth buffering for.
func mayHaveBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

// RequestBodyTooLargeRecorder counts requests rejected at the body cap.
// Nil when metrics are disabled.
type RequestBodyTooLargeRecorder interface {
	RecordRequestBodyTooLarge(ctx context.Context)
}

// MaxBody caps request bodies at maxBytes and turns an exceeded cap into a
// 413, replacing whatever the handler managed to produce from the truncated
// read. maxBytes <= 0 disables the cap.
func MaxBody(maxBytes int64, recorder RequestBodyTooLargeRecorder) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// The handler sees the truncated body and typically fails with a
			// decode error; the read wrapper remembers whether the cap was
			// the actual cause.
			limited := http.MaxBytesReader(w, r.Body, maxBytes)

			var capHit bool

			r.Body = &capTrackingBody{
				ReadCloser: limited,
				onReadError: func(err error) {
					if err != nil && strings.Contains(err.Error(), errRequestBodyTooLarge) {
						capHit = true
					}
				},
			}

			// Buffer the response only for body-carrying methods so the
			// handler's output can be discarded in favor of the 413.
			if mayHaveBody(r.Method) {
				held := &heldResponse{ResponseWriter: w}
				next.ServeHTTP(held, r)

				if capHit {
					if recorder != nil {
						recorder.RecordRequestBodyTooLarge(r.Context())
					}

					response.RespondError(held.ResponseWriter, http.StatusRequestEntityTooLarge,
						"Request Entity Too Large", "request body exceeds maximum allowed size")

					return
				}

				held.flush()

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type capTrackingBody struct {
	io.ReadCloser

	onReadError func(error)
}

func (b *capTrackingBody) Read(p []byte) (n int, err error) {
	n, err = b.ReadCloser.Read(p)
	if err != nil && b.onReadError != nil {
		b.onReadError(err)
	}

	if err != nil {
		return n, fmt.Errorf("read body: %w", err)
	}

	return n, nil
}

// heldResponse delays the handler's status and body until flush, so MaxBody
// can still replace them with a 413.
type heldResponse struct {
	http.ResponseWriter

	status int
	buf    bytes.Buffer
}

func (h *heldResponse) WriteHeader(code int) {
	h.status = code
}

func (h *heldResponse) Write(p []byte) (n int, err error) {
	n, err = h.buf.Write(p)
	if err != nil {
		return n, fmt.Errorf("buffer write: %w", err)
	}

	return n, nil
}

func (h *heldResponse) flush() {
	if h.status != 0 {
		h.ResponseWriter.WriteHeader(h.status)
	}

	_, _ = h.buf.WriteTo(h.ResponseWriter)
}
