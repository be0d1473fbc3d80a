package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache caches successful GET responses and drops everything after a successful write.
type ResponseCache struct {
	store      *cache.Cache
	ttl        time.Duration
	mu         sync.Mutex
	generation uint64
}

// NewResponseCache creates a ResponseCache whose entries live for ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: cache.New(ttl, 2*ttl), ttl: ttl}
}

// Flush drops every cached response.
func (rc *ResponseCache) Flush() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.generation++
	rc.store.Flush()
}

func (rc *ResponseCache) currentGeneration() uint64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.generation
}

// storeIfCurrent caches resp unless a flush happened since gen was read.
func (rc *ResponseCache) storeIfCurrent(gen uint64, key string, resp cachedResponse) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.generation == gen {
		rc.store.Set(key, resp, rc.ttl)
	}
}

// Middleware serves cached GETs and flushes the cache after successful non-GET requests.
// A GET that started before a flush is not stored.
func (rc *ResponseCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			if status := c.Writer.Status(); status >= 200 && status < 300 {
				rc.Flush()
			}
			return
		}

		key := c.Request.RequestURI
		if resp, found := rc.store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				if k == RequestIDHeader {
					continue
				}
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		gen := rc.currentGeneration()
		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		if blw.Status() >= 200 && blw.Status() < 300 {
			rc.storeIfCurrent(gen, key, cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    append([]byte(nil), blw.body.Bytes()...),
			})
		}
	}
}
