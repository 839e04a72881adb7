package middleware

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return gz
	},
}

// bufferedResponse holds the whole response so it can be hashed before
// anything reaches the client
type bufferedResponse struct {
	header     http.Header
	body       bytes.Buffer
	statusCode int
}

func newBufferedResponse() *bufferedResponse {
	return &bufferedResponse{header: make(http.Header), statusCode: http.StatusOK}
}

func (b *bufferedResponse) Header() http.Header         { return b.header }
func (b *bufferedResponse) Write(p []byte) (int, error) { return b.body.Write(p) }
func (b *bufferedResponse) WriteHeader(statusCode int)  { b.statusCode = statusCode }

// etagOf hashes the uncompressed body so the tag is the same for every encoding
func etagOf(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// cacheControlFor picks the Cache-Control value for a request. Personalized
// requests are marked private. Responses that depend on the clock must be
// revalidated on every read; the ETag keeps that cheap.
func cacheControlFor(r *http.Request) string {
	if r.Header.Get("Authorization") != "" {
		return "private, no-cache, must-revalidate"
	}
	if on, err := strconv.ParseBool(r.URL.Query().Get("openNow")); err == nil && on {
		return "public, no-cache"
	}
	switch r.URL.Path {
	case "/api/search", "/api/promo-ads":
		return "public, no-cache"
	case "/api/semantic-search":
		return "public, max-age=120, must-revalidate"
	case "/api/businesses", "/api/sale-ads":
		return "public, max-age=300, must-revalidate"
	}
	return "private, no-cache, must-revalidate"
}

// ResponseOptimization sets Cache-Control, answers If-None-Match with 304 and
// gzips bodies for clients that accept it. Only GET and HEAD are buffered.
func ResponseOptimization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheControlFor(r))

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		buf := newBufferedResponse()
		next.ServeHTTP(buf, r)

		for k, v := range buf.header {
			w.Header()[k] = v
		}

		if buf.statusCode != http.StatusOK {
			w.WriteHeader(buf.statusCode)
			_, _ = w.Write(buf.body.Bytes())
			return
		}

		etag := etagOf(buf.body.Bytes())
		w.Header().Set("ETag", etag)
		w.Header().Add("Vary", "Accept-Encoding")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		if !acceptsGzip(r) || buf.body.Len() == 0 {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(buf.body.Bytes())
			return
		}

		gz := gzipWriterPool.Get().(*gzip.Writer)
		defer gzipWriterPool.Put(gz)
		gz.Reset(w)

		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Del("Content-Length")
		w.WriteHeader(http.StatusOK)
		_, _ = gz.Write(buf.body.Bytes())
		_ = gz.Close()
	})
}
