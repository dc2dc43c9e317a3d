package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

type HealthReport struct {
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	SchemaVersion int       `json:"schema_version"`
	Pool          PoolStats `json:"pool"`
}

func statsOf(pool *pgxpool.Pool) PoolStats {
	s := pool.Stat()
	return PoolStats{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
	}
}

// Check pings the database and reads the newest applied migration.
func Check(ctx context.Context, pool *pgxpool.Pool) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r := HealthReport{Status: "healthy", Pool: statsOf(pool)}
	err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&r.SchemaVersion)
	if err != nil {
		r.Status, r.Error = "unhealthy", err.Error()
	}
	return r
}

func (r HealthReport) httpStatus() int {
	if r.Status != "healthy" {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := Check(c.Request().Context(), pool)
		return c.JSON(r.httpStatus(), r)
	}
}
