package statistics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/ManuelReschke/ColorCalm/app/models"
)

const (
	CacheKeyPagesTotal = "statistics:pages:total"
	CacheKeyPagesDaily = "statistics:pages:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers      = "statistics:users:total"
	CacheExpiration    = 30 * time.Minute
)

// StatisticsData holds the counters shown on the home page
type StatisticsData struct {
	TodayPages int
	TotalUsers int
	TotalPages int
}

// Statistics caches site counters in Redis
type Statistics struct {
	rdb *redis.Client
	db  *gorm.DB
	now func() time.Time
}

func New(rdb *redis.Client, db *gorm.DB) *Statistics {
	return &Statistics{rdb: rdb, db: db, now: time.Now}
}

func (s *Statistics) dailyKey() string {
	return fmt.Sprintf(CacheKeyPagesDaily, s.now().UTC().Format("2006-01-02"))
}

// Refresh recomputes all counters and stores them in the cache
func (s *Statistics) Refresh(ctx context.Context) error {
	data, err := s.compute(ctx)
	if err != nil {
		return err
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, CacheKeyPagesTotal, data.TotalPages, CacheExpiration)
	pipe.Set(ctx, s.dailyKey(), data.TodayPages, CacheExpiration)
	pipe.Set(ctx, CacheKeyUsers, data.TotalUsers, CacheExpiration)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache statistics: %w", err)
	}

	log.Debugf("[Statistics] Updated: pages=%d today=%d users=%d", data.TotalPages, data.TodayPages, data.TotalUsers)
	return nil
}

// Get returns the cached counters, refreshing them when any is missing
func (s *Statistics) Get(ctx context.Context) StatisticsData {
	vals, err := s.rdb.MGet(ctx, CacheKeyPagesTotal, s.dailyKey(), CacheKeyUsers).Result()
	if err == nil {
		if data, ok := parseCached(vals); ok {
			return data
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Warnf("[Statistics] Cache read failed: %v", err)
	}

	if err := s.Refresh(ctx); err != nil {
		log.Errorf("[Statistics] Refresh failed: %v", err)
	}
	data, err := s.compute(ctx)
	if err != nil {
		log.Errorf("[Statistics] Counting failed: %v", err)
		return StatisticsData{}
	}
	return data
}

func parseCached(vals []interface{}) (StatisticsData, bool) {
	if len(vals) != 3 {
		return StatisticsData{}, false
	}
	ints := make([]int, 3)
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			return StatisticsData{}, false
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return StatisticsData{}, false
		}
		ints[i] = n
	}
	return StatisticsData{TotalPages: ints[0], TodayPages: ints[1], TotalUsers: ints[2]}, true
}

func (s *Statistics) compute(ctx context.Context) (StatisticsData, error) {
	db := s.db.WithContext(ctx)

	var totalPages int64
	if err := db.Model(&models.ColoringPage{}).
		Where("status = ?", models.ColoringStatusCompleted).
		Count(&totalPages).Error; err != nil {
		return StatisticsData{}, fmt.Errorf("count pages: %w", err)
	}

	now := s.now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var todayPages int64
	if err := db.Model(&models.ColoringPage{}).
		Where("status = ? AND created_at >= ? AND created_at < ?", models.ColoringStatusCompleted, todayStart, todayStart.Add(24*time.Hour)).
		Count(&todayPages).Error; err != nil {
		return StatisticsData{}, fmt.Errorf("count today's pages: %w", err)
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return StatisticsData{}, fmt.Errorf("count users: %w", err)
	}

	return StatisticsData{
		TodayPages: int(todayPages),
		TotalUsers: int(totalUsers),
		TotalPages: int(totalPages),
	}, nil
}
