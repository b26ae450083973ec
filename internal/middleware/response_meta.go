package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const responseMetaKey = "response_meta"

// responseMeta accumulates per-request serving details surfaced in the
// envelope's meta block on cached endpoints.
type responseMeta struct {
	cacheHit *bool
	start    time.Time
}

// WithResponseMeta starts response metadata tracking for the request.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseMetaKey, &responseMeta{start: time.Now()})
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	if meta := metaFromContext(c); meta != nil {
		meta.cacheHit = &hit
	}
}

// ExtractMeta renders the tracked metadata for the response envelope.
// Returns nil when tracking was never started, keeping the meta block out
// of the payload.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := metaFromContext(c)
	if meta == nil {
		return nil
	}
	rendered := map[string]interface{}{
		"processing_time_ms": time.Since(meta.start).Milliseconds(),
	}
	if meta.cacheHit != nil {
		rendered["cache_hit"] = *meta.cacheHit
	}
	return rendered
}

func metaFromContext(c *gin.Context) *responseMeta {
	if c == nil {
		return nil
	}
	if v, exists := c.Get(responseMetaKey); exists {
		if meta, ok := v.(*responseMeta); ok {
			return meta
		}
	}
	return nil
}
