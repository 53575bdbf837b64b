// Package compress encodes responses with brotli or gzip based on Accept-Encoding.
package compress

import (
	"compress/gzip"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
)

// MinSize is the smallest body worth compressing.
const MinSize = 512

var compressible = []string{
	"text/", "application/json", "application/javascript", "image/svg+xml",
}

// Middleware compresses text-like responses. Brotli is preferred over gzip.
func Middleware(level int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enc := negotiate(r.Header.Get("Accept-Encoding"))
			w.Header().Add("Vary", "Accept-Encoding")
			if enc == "" || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			cw := &writer{ResponseWriter: w, encoding: enc, level: level}
			defer cw.Close()
			next.ServeHTTP(cw, r)
		})
	}
}

func negotiate(accept string) string {
	var gz bool
	for _, part := range strings.Split(accept, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "br":
			return "br"
		case "gzip":
			gz = true
		}
	}
	if gz {
		return "gzip"
	}
	return ""
}

type writer struct {
	http.ResponseWriter
	encoding string
	level    int

	enc         io.WriteCloser
	decided     bool
	passthrough bool
	status      int
	buf         []byte
}

func (w *writer) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *writer) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if w.decided {
		if w.passthrough {
			return w.ResponseWriter.Write(p)
		}
		return w.enc.Write(p)
	}

	w.buf = append(w.buf, p...)
	if len(w.buf) < MinSize {
		return len(p), nil
	}
	if err := w.start(); err != nil {
		return 0, err
	}
	return len(p), nil
}

// start picks passthrough or compression once enough of the body is known and flushes the buffer.
func (w *writer) start() error {
	w.decided = true
	h := w.Header()
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", http.DetectContentType(w.buf))
	}

	if len(w.buf) < MinSize || h.Get("Content-Encoding") != "" || !isCompressible(h.Get("Content-Type")) || w.status == http.StatusNoContent {
		w.passthrough = true
		w.ResponseWriter.WriteHeader(w.status)
		_, err := w.ResponseWriter.Write(w.buf)
		w.buf = nil
		return err
	}

	h.Del("Content-Length")
	h.Set("Content-Encoding", w.encoding)
	w.ResponseWriter.WriteHeader(w.status)

	if w.encoding == "br" {
		w.enc = brotli.NewWriterLevel(w.ResponseWriter, w.level)
	} else {
		gw, err := gzip.NewWriterLevel(w.ResponseWriter, gzip.DefaultCompression)
		if err != nil {
			return err
		}
		w.enc = gw
	}
	_, err := w.enc.Write(w.buf)
	w.buf = nil
	return err
}

func (w *writer) Close() error {
	if !w.decided {
		if w.status == 0 {
			return nil
		}
		if err := w.start(); err != nil {
			return err
		}
	}
	if w.enc != nil {
		return w.enc.Close()
	}
	return nil
}

func (w *writer) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func isCompressible(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, prefix := range compressible {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}
