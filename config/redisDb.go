package config

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// OpenRedis connects to Redis when REDIS_ADDRESS is configured and returns
// the client plus a lock client for the sync driver's distributed
// single-flight guard. A till has no Redis; both return values are nil then
// and the driver falls back to its in-process mutex.
func OpenRedis(ctx context.Context) (*redis.Client, *redislock.Client) {
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDRESS"))
	if redisAddr == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("redis configured at %s but unreachable: %v; continuing without it", redisAddr, err)
		_ = rdb.Close()
		return nil, nil
	}

	log.Printf("connected to redis (addr=%s)", redisAddr)
	return rdb, redislock.New(rdb)
}
