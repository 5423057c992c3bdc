// Package remotefile implements the remote_file resource kind: fetch
// SourceURL over http(s), sftp, or s3, compare against Checksum/ETag/
// Last-Modified, and write atomically if changed.
package remotefile

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	cache "github.com/patrickmn/go-cache"
)

// runCache deduplicates repeated fetches of the same URL within a single
// recipe run (two remote_file resources pointed at the same upstream
// don't download it twice). Its headers field is a ten-minute in-memory
// memo of ETag/Last-Modified values by URL; the driver's conditional
// fetch reads those values from the on-disk sidecar and does not consult
// this memo.
type runCache struct {
	mu      sync.Mutex
	bodies  *lru.Cache
	headers *cache.Cache
}

func newRunCache() *runCache {
	bodies, _ := lru.New(32)
	return &runCache{
		bodies:  bodies,
		headers: cache.New(10*time.Minute, time.Minute),
	}
}

func (c *runCache) getBody(url string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.bodies.Get(url)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

func (c *runCache) putBody(url string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bodies.Add(url, body)
}

func (c *runCache) getHeaders(url string) (etag, lastModified string, ok bool) {
	v, found := c.headers.Get(url)
	if !found {
		return "", "", false
	}
	h := v.(conditionalHeaders)
	return h.etag, h.lastModified, true
}

func (c *runCache) putHeaders(url, etag, lastModified string) {
	c.headers.SetDefault(url, conditionalHeaders{etag: etag, lastModified: lastModified})
}

type conditionalHeaders struct {
	etag         string
	lastModified string
}
