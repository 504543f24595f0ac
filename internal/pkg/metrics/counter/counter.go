package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/internal/pkg/cache"
	"github.com/ManuelReschke/ColorCalm/internal/pkg/database"
)

const (
	pageDownloadsKey = "coloring:counters:downloads"
)

// Counter buffers hot counters in Redis and periodically applies them to the database
type Counter struct {
	rdb *redis.Client
	db  *gorm.DB
}

// New creates a counter on explicit backends
func New(rdb *redis.Client, db *gorm.DB) *Counter {
	return &Counter{rdb: rdb, db: db}
}

// Default uses the global cache client and database
func Default() *Counter {
	return New(cache.GetClient(), database.GetDB())
}

// AddPageDownload increments the pending download counter for a coloring page in Redis
func (c *Counter) AddPageDownload(ctx context.Context, pageID uint) error {
	field := strconv.FormatUint(uint64(pageID), 10)
	return c.rdb.HIncrBy(ctx, pageDownloadsKey, field, 1).Err()
}

// Pending returns the not yet flushed downloads of a page
func (c *Counter) Pending(ctx context.Context, pageID uint) (int64, error) {
	field := strconv.FormatUint(uint64(pageID), 10)
	n, err := c.rdb.HGet(ctx, pageDownloadsKey, field).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Flush applies all pending counters to the database
func (c *Counter) Flush(ctx context.Context) error {
	return c.flushHashToTable(ctx, pageDownloadsKey, "coloring_pages", "download_count")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments to table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func (c *Counter) flushHashToTable(ctx context.Context, redisKey, table, column string) error {
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := c.rdb.Rename(ctx, redisKey, tmpKey).Err(); err != nil {
		// If key does not exist, nothing to flush
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}

	data, err := c.rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		c.rdb.Del(ctx, tmpKey)
		return nil
	}

	type pair struct {
		id  uint64
		inc int64
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		id, perr := strconv.ParseUint(k, 10, 64)
		if perr != nil {
			continue
		}
		inc, ierr := strconv.ParseInt(v, 10, 64)
		if ierr != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{id: id, inc: inc})
	}
	if len(pairs) == 0 {
		c.rdb.Del(ctx, tmpKey)
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE <table> SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" ELSE 0 END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	if err := c.db.WithContext(ctx).Exec(builder.String(), args...).Error; err != nil {
		// put the drained counts back so the next flush retries them
		pipe := c.rdb.Pipeline()
		for _, p := range pairs {
			pipe.HIncrBy(ctx, redisKey, strconv.FormatUint(p.id, 10), p.inc)
		}
		pipe.Del(ctx, tmpKey)
		_, _ = pipe.Exec(ctx)
		return err
	}
	c.rdb.Del(ctx, tmpKey)
	return nil
}
