package utils

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/redis/go-redis/v9"
)

type CacheInvalidator struct{ rdb *redis.Client }

func NewCacheInvalidator(rdb *redis.Client) *CacheInvalidator { return &CacheInvalidator{rdb} }

func (ci *CacheInvalidator) purge(ctx context.Context, pattern string) {
	iter := ci.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		_ = ci.rdb.Del(ctx, iter.Val()).Err()
	}
}

// PurgeEventsList — 任何事件寫入後清掉列表/search/nearby 的快取
func (ci *CacheInvalidator) PurgeEventsList(ctx context.Context) {
	ci.purge(ctx, "cache:events:list:*")
}

// PurgeEventItem — 單筆快取的 key 規則要跟 middlewares.CacheKeyFrom 一致
func (ci *CacheInvalidator) PurgeEventItem(ctx context.Context, id string) {
	sum := sha1.Sum([]byte("GET|/events/" + id))
	_ = ci.rdb.Del(ctx, "cache:events:item:"+hex.EncodeToString(sum[:])).Err()
}
