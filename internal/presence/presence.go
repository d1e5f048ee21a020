// internal/presence/presence.go
package presence

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Tracker records last-seen timestamps in Redis. Presence is advisory: reads
// degrade to "unknown" on faults so they never block a primary operation.
type Tracker struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

// Connect initializes a Redis client from REDIS_ADDR / REDIS_DB and verifies
// connectivity.
func Connect(ctx context.Context) (*redis.Client, error) {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewTracker constructs a Tracker. Entries expire after ttl; zero means 30 days.
func NewTracker(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *Tracker {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if log == nil {
		log = logrus.New()
	}
	return &Tracker{rdb: rdb, ttl: ttl, log: log}
}

func (t *Tracker) key(userID uuid.UUID) string {
	return "presence:last_seen:" + userID.String()
}

// Touch records that the user was just seen.
func (t *Tracker) Touch(ctx context.Context, userID uuid.UUID) {
	now := time.Now().UTC()
	if err := t.rdb.Set(ctx, t.key(userID), now.Unix(), t.ttl).Err(); err != nil {
		t.log.WithError(err).WithField("user_id", userID).Warn("presence touch failed")
	}
}

// LastSeen returns the user's last-seen time. Missing entries and Redis
// faults both report ok=false.
func (t *Tracker) LastSeen(ctx context.Context, userID uuid.UUID) (time.Time, bool) {
	val, err := t.rdb.Get(ctx, t.key(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			t.log.WithError(err).WithField("user_id", userID).Warn("presence read failed")
		}
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0).UTC(), true
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
