package utils

import (
	"context"
	"sync"
	"time"
)

var (
	cooldowns   = map[string]time.Time{}
	cooldownsMu sync.Mutex
)

// CooldownTrySet claims key for the given duration. It returns false while a previous claim is active.
// Redis SETNX is used when available, an in-process map otherwise.
func CooldownTrySet(key string, cooldown time.Duration) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, err := rc.SetNX(ctx, "cooldown:"+key, "1", cooldown).Result()
		if err == nil {
			return ok
		}
		Sugar.Warnf("cooldown redis setnx failed key=%s err=%v", key, err)
	}

	cooldownsMu.Lock()
	defer cooldownsMu.Unlock()
	now := time.Now()
	for k, exp := range cooldowns {
		if now.After(exp) {
			delete(cooldowns, k)
		}
	}
	if exp, ok := cooldowns[key]; ok && now.Before(exp) {
		return false
	}
	cooldowns[key] = now.Add(cooldown)
	return true
}
