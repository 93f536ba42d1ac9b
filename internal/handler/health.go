package handler

import (
	"context"
	"net/http"
	"time"

	"ledgerpos/internal/infra"
	"ledgerpos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// A Redis failure reports degraded; only the database decides the 503.
func Health(db *gorm.DB, rdb *redis.Client, cb *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		var dlqLen int64
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else {
				dlqLen, _ = worker.DLQLength(ctx, rdb, worker.QueueLedgerEvents)
			}
		}

		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		body := gin.H{
			"ok":       status == http.StatusOK,
			"db":       dbStatus,
			"redis":    redisStatus,
			"degraded": redisStatus == "error",
		}
		if redisStatus == "connected" {
			body["dlq_ledger_events"] = dlqLen
		}
		if cb != nil {
			body["cache_breaker"] = cb.State().String()
		}
		c.JSON(status, body)
	}
}
