package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL applies when a response carries no freshness information.
	// Live listings change quickly, so it is short.
	DefaultTTL = 60 * time.Second

	// MaxTTL caps freshness taken from response headers.
	MaxTTL = 10 * time.Minute
)

// NewEntry builds an entry from resp. The body is read and put back, so the
// caller can still decode it.
func NewEntry(resp *http.Response, now time.Time) (*Entry, error) {
	if resp == nil {
		return nil, errors.New("cache: nil response")
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	e := &Entry{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		ETag:       resp.Header.Get("ETag"),
		StoredAt:   now,
		Expires:    Expiry(resp.Header, now),
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		e.LastModified = lm
	}
	return e, nil
}

// Response rebuilds an HTTP response from the entry, marked X-Cache: HIT.
func (e *Entry) Response() *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("X-Cache", "HIT")

	status := e.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
	}
}

// CanRevalidate reports whether the entry carries a validator.
func (e *Entry) CanRevalidate() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// Revalidate makes req conditional on the entry: If-None-Match when an ETag
// is known, If-Modified-Since otherwise.
func (e *Entry) Revalidate(req *http.Request) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	switch {
	case e.ETag != "":
		req.Header.Set("If-None-Match", e.ETag)
	case !e.LastModified.IsZero():
		req.Header.Set("If-Modified-Since", e.LastModified.UTC().Format(http.TimeFormat))
	}
}

// Storable reports whether resp may be cached: a 200 without no-store or
// private.
func Storable(resp *http.Response) bool {
	if resp == nil || resp.StatusCode != http.StatusOK {
		return false
	}
	for _, d := range cacheControl(resp.Header) {
		if d == "no-store" || d == "private" {
			return false
		}
	}
	return true
}

// Expiry derives when a response goes stale: Cache-Control max-age first,
// then Expires, then DefaultTTL. It is never later than now+MaxTTL.
func Expiry(header http.Header, now time.Time) time.Time {
	limit := now.Add(MaxTTL)
	clamp := func(t time.Time) time.Time {
		switch {
		case t.After(limit):
			return limit
		case t.Before(now):
			return now
		}
		return t
	}

	for _, d := range cacheControl(header) {
		if v, ok := strings.CutPrefix(d, "max-age="); ok {
			if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
				return clamp(now.Add(time.Duration(seconds) * time.Second))
			}
		}
	}
	if expires, err := http.ParseTime(header.Get("Expires")); err == nil {
		return clamp(expires)
	}
	return now.Add(DefaultTTL)
}

func cacheControl(header http.Header) []string {
	var directives []string
	for _, value := range header.Values("Cache-Control") {
		for _, d := range strings.Split(value, ",") {
			if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
				directives = append(directives, d)
			}
		}
	}
	return directives
}
