package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coocood/freecache"

	"github.com/cajaoblatos/oblatos34/config"
)

const (
	defaultCacheTTL = time.Hour
	minCacheSizeMB  = 1
)

var (
	localCache     *freecache.Cache
	localCacheOnce sync.Once
)

// LocalCache returns the in-process cache tier sized from config.
func LocalCache() *freecache.Cache {
	localCacheOnce.Do(func() {
		size := config.Get().CacheSizeMB
		if size < minCacheSizeMB {
			size = minCacheSizeMB
		}
		localCache = freecache.NewCache(size * 1024 * 1024)
	})
	return localCache
}

// CacheGetBytes looks a key up in the local tier first, then in Redis.
// Redis hits are copied into the local tier for the remaining Redis TTL.
func CacheGetBytes(key string) ([]byte, bool) {
	if b, err := LocalCache().Get([]byte(key)); err == nil {
		CacheHits.WithLabelValues("local").Inc()
		return b, true
	}
	rc := GetRedis()
	if rc == nil {
		CacheMisses.Inc()
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		CacheMisses.Inc()
		return nil, false
	}
	if ttl, err := rc.TTL(ctx, key).Result(); err == nil && ttl > 0 {
		_ = LocalCache().Set([]byte(key), b, ttlSeconds(ttl))
	}
	CacheHits.WithLabelValues("redis").Inc()
	return b, true
}

// CacheSetBytes stores bytes in both tiers. A non-positive ttl means one hour.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if err := LocalCache().Set([]byte(key), b, ttlSeconds(ttl)); err != nil {
		Sugar.Warnf("local cache set failed key=%s err=%v", key, err)
	}
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(key, b, ttl)
}

// CacheGetJSON unmarshals a cached JSON value into out. Corrupt entries count as a miss.
func CacheGetJSON(key string, out interface{}) bool {
	b, ok := CacheGetBytes(key)
	if !ok {
		return false
	}
	return json.Unmarshal(b, out) == nil
}

// InvalidateByPrefix deletes keys that match the given prefix from both tiers.
func InvalidateByPrefix(prefix string) {
	var stale [][]byte
	it := LocalCache().NewIterator()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		if bytes.HasPrefix(entry.Key, []byte(prefix)) {
			stale = append(stale, entry.Key)
		}
	}
	for _, k := range stale {
		LocalCache().Del(k)
	}

	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			_, _ = pipe.Exec(ctx)
		}
		if cursor == 0 {
			break
		}
	}
}

func ttlSeconds(ttl time.Duration) int {
	sec := int(ttl / time.Second)
	if sec < 1 {
		sec = 1
	}
	return sec
}
