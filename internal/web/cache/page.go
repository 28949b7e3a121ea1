package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	webcontext "github.com/chikamso/portfolio/internal/web/context"
)

const pageKeyPrefix = "page:"

// PageKey is the cache key of the rendered page at path
func PageKey(path string) string {
	return pageKeyPrefix + path
}

// PageConfig configures the page cache middleware
type PageConfig struct {
	Cache Cache
	TTL   time.Duration
	// CacheControl is sent with every cacheable response
	CacheControl string
}

type cachedPage struct {
	Status       int         `json:"status"`
	Header       http.Header `json:"header"`
	Body         []byte      `json:"body"`
	ETag         string      `json:"etag"`
	LastModified time.Time   `json:"last_modified"`
}

// Pages caches successful anonymous GET responses by URL path. Requests
// from signed-in users, requests with a query string and responses that set
// cookies bypass the cache. Entries live until TTL passes or a
// RevalidatePath call for the same path drops them.
func Pages(config PageConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.RawQuery != "" || webcontext.GetCurrentUser(r.Context()) != "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := PageKey(r.URL.Path)

			if data, err := config.Cache.Get(ctx, key); err == nil {
				var page cachedPage
				if err := json.Unmarshal(data, &page); err == nil {
					servePage(w, r, &page, config.CacheControl)
					return
				}
			}

			rec := &pageRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK || rec.Header().Get("Set-Cookie") != "" {
				return
			}
			page := cachedPage{
				Status:       rec.status,
				Header:       rec.Header().Clone(),
				Body:         rec.body.Bytes(),
				ETag:         ETag(rec.body.Bytes()),
				LastModified: time.Now().UTC(),
			}
			data, err := json.Marshal(page)
			if err != nil {
				return
			}
			if err := config.Cache.Set(ctx, key, data, config.TTL); err != nil {
				webcontext.Logger(ctx).Warn("page cache write failed", zap.String("path", r.URL.Path), zap.Error(err))
			}
		})
	}
}

func servePage(w http.ResponseWriter, r *http.Request, page *cachedPage, cacheControl string) {
	h := w.Header()
	for k, v := range page.Header {
		h[k] = append([]string(nil), v...)
	}
	h.Set("ETag", page.ETag)
	h.Set("Last-Modified", page.LastModified.Format(http.TimeFormat))
	if cacheControl != "" {
		h.Set("Cache-Control", cacheControl)
	}
	h.Set("X-Cache", "HIT")

	if notModified(r, page.ETag, page.LastModified) {
		h.Del("Content-Length")
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(page.Status)
	_, _ = w.Write(page.Body)
}

// pageRecorder passes the response through while keeping a copy of the body
type pageRecorder struct {
	http.ResponseWriter
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func (p *pageRecorder) WriteHeader(status int) {
	if p.wroteHeader {
		return
	}
	p.wroteHeader = true
	p.status = status
	p.Header().Set("X-Cache", "MISS")
	p.ResponseWriter.WriteHeader(status)
}

func (p *pageRecorder) Write(b []byte) (int, error) {
	if !p.wroteHeader {
		p.WriteHeader(http.StatusOK)
	}
	p.body.Write(b)
	return p.ResponseWriter.Write(b)
}

// Invalidator drops cached pages after their content changed
type Invalidator struct {
	cache  Cache
	logger *zap.Logger
}

// NewInvalidator creates an Invalidator over the page cache
func NewInvalidator(cache Cache, logger *zap.Logger) *Invalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invalidator{cache: cache, logger: logger}
}

// RevalidatePath drops the cached page for path so the next request renders
// it again.
func (i *Invalidator) RevalidatePath(ctx context.Context, path string) error {
	if err := i.cache.Delete(ctx, PageKey(path)); err != nil {
		i.logger.Warn("revalidate path failed", zap.String("path", path), zap.Error(err))
		return err
	}
	i.logger.Debug("path revalidated", zap.String("path", path))
	return nil
}

// RevalidateAll drops every cached entry
func (i *Invalidator) RevalidateAll(ctx context.Context) error {
	return i.cache.Clear(ctx)
}
