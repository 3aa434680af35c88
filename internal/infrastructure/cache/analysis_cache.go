package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/domain/analysis"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/config"
)

const analysisKeyPrefix = "iae:analysis:"

// AnalysisCache caches per-record compliance analyses in Redis using the
// cache-aside pattern. Every failure degrades to a miss: a broken cache
// costs recomputation, never a failed request.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewAnalysisCache connects to Redis and verifies the connection.
func NewAnalysisCache(cfg *config.RedisConfig, logger *zap.Logger) (*AnalysisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.URL,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info("analysis cache initialized",
		zap.String("addr", cfg.URL),
		zap.Duration("ttl", cfg.AnalysisTTL))

	return &AnalysisCache{
		client: client,
		ttl:    cfg.AnalysisTTL,
		logger: logger,
	}, nil
}

// Get returns the cached analysis for a record, or false on miss. A nil
// receiver is a valid always-miss cache.
func (c *AnalysisCache) Get(ctx context.Context, kind, recordID string) (*analysis.ComplianceAnalysis, bool) {
	if c == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, analysisKey(kind, recordID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("analysis cache get failed",
				zap.String("record_id", recordID),
				zap.Error(err))
		}
		return nil, false
	}

	var a analysis.ComplianceAnalysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		c.logger.Warn("analysis cache entry corrupt",
			zap.String("record_id", recordID),
			zap.Error(err))
		return nil, false
	}
	return &a, true
}

// Set stores an analysis with the configured TTL. Errors are logged and
// swallowed.
func (c *AnalysisCache) Set(ctx context.Context, kind, recordID string, a analysis.ComplianceAnalysis) {
	if c == nil {
		return
	}

	raw, err := json.Marshal(a)
	if err != nil {
		c.logger.Warn("analysis cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, analysisKey(kind, recordID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("analysis cache set failed",
			zap.String("record_id", recordID),
			zap.Error(err))
	}
}

// Close releases the underlying Redis connection pool.
func (c *AnalysisCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}

func analysisKey(kind, recordID string) string {
	return analysisKeyPrefix + kind + ":" + recordID
}
