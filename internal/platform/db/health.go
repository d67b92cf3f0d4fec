package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const pingTimeout = 3 * time.Second

// Health is the body of the health endpoint.
type Health struct {
	Status string     `json:"status"`
	Store  string     `json:"store"`
	Error  string     `json:"error,omitempty"`
	Pool   *PoolStats `json:"pool,omitempty"`
}

// PoolStats summarises pgxpool.Stat.
type PoolStats struct {
	Total        int32  `json:"total"`
	Idle         int32  `json:"idle"`
	InUse        int32  `json:"inUse"`
	Max          int32  `json:"max"`
	Acquires     int64  `json:"acquires"`
	EmptyWaits   int64  `json:"emptyWaits"`
	AcquireTotal string `json:"acquireTotal"`
}

func statsOf(s *pgxpool.Stat) *PoolStats {
	return &PoolStats{
		Total:        s.TotalConns(),
		Idle:         s.IdleConns(),
		InUse:        s.AcquiredConns(),
		Max:          s.MaxConns(),
		Acquires:     s.AcquireCount(),
		EmptyWaits:   s.EmptyAcquireCount(),
		AcquireTotal: s.AcquireDuration().String(),
	}
}

// Check pings the database. A nil pool reports the in-memory stores, which
// are always up.
func Check(ctx context.Context, pool *pgxpool.Pool) Health {
	if pool == nil {
		return Health{Status: "healthy", Store: "memory"}
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	h := Health{Status: "healthy", Store: "postgres"}
	if err := pool.Ping(ctx); err != nil {
		h.Status = "unhealthy"
		h.Error = err.Error()
	}
	h.Pool = statsOf(pool.Stat())
	return h
}

// HealthHandler serves Check, answering 503 while the database is down.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := Check(c.Request().Context(), pool)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, h)
	}
}
