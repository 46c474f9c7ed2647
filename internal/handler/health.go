package handler

import (
	"context"
	"net/http"
	"time"

	"tillkeeper/internal/infra"
	"tillkeeper/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// A nil db means the in-memory store is in use; a nil rdb means background
// jobs are disabled. The SMTP breaker state and the closing-report DLQ depth
// are informational only.
func Health(db *gorm.DB, rdb *redis.Client, smtpCB *infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "memory"
		if db != nil {
			dbStatus = "connected"
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(ctx) != nil {
				dbStatus = "error"
			}
		}

		body := gin.H{"db": dbStatus}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueClosingReports); err == nil {
				body["report_dlq"] = n
			}
		}
		body["redis"] = redisStatus

		if smtpCB != nil {
			body["smtp"] = smtpCB.State().String()
		}

		status := http.StatusOK
		if dbStatus == "error" || redisStatus == "error" {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = status == http.StatusOK

		c.JSON(status, body)
	}
}
