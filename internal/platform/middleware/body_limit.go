package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit rejects request bodies larger than limit ("64K", "1M", or a
// plain byte count) with 413. Content-Length is checked up front; bodies
// without one are cut off while being read.
func BodyLimit(limit string) echo.MiddlewareFunc {
	maxBytes := parseLimit(limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > maxBytes {
				return tooLarge(maxBytes)
			}
			req.Body = &limitedReadCloser{ReadCloser: req.Body, remaining: maxBytes, limit: maxBytes}
			return next(c)
		}
	}
}

type limitedReadCloser struct {
	io.ReadCloser
	remaining int64
	limit     int64
}

func (r *limitedReadCloser) Read(p []byte) (int, error) {
	if r.remaining < 0 {
		return 0, tooLarge(r.limit)
	}
	// read one byte past the limit to detect overflow
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}
	n, err := r.ReadCloser.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		return 0, tooLarge(r.limit)
	}
	return n, err
}

func tooLarge(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("request body exceeds %d bytes", limit))
}

// parseLimit falls back to 1 MB for empty or malformed input.
func parseLimit(s string) int64 {
	const fallback = 1 << 20
	s = strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), "B")

	multiplier := int64(1)
	for suffix, m := range map[string]int64{"K": 1 << 10, "M": 1 << 20, "G": 1 << 30} {
		if rest, ok := strings.CutSuffix(s, suffix); ok {
			s, multiplier = rest, m
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n * multiplier
}
