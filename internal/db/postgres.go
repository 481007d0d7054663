package db

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool is the shared Postgres connection pool. Nil when DATABASE_URL is
// not set; callers treat that as "archive disabled".
var Pool *pgxpool.Pool

var openPool = pgxpool.New

func InitPostgres(ctx context.Context) {
	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		log.Println("Postgres disabled: DATABASE_URL not set")
		return
	}

	pool, err := openPool(ctx, dsn)
	if err != nil {
		log.Printf("Warning: failed to connect to Postgres: %v", err)
		return
	}

	if err := pool.Ping(ctx); err != nil {
		log.Printf("Warning: Postgres unreachable: %v", err)
		pool.Close()
		return
	}

	Pool = pool
	log.Println("Connected to Postgres")
}
