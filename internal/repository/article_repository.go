package repository

import (
	"context"

	"coinpanel/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

const createArticlesTable = `
CREATE TABLE IF NOT EXISTS articles (
    identity_key TEXT        NOT NULL,
    title        TEXT        NOT NULL,
    link         TEXT        NOT NULL,
    summary      TEXT        NOT NULL DEFAULT '',
    source_id    TEXT        NOT NULL,
    published_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (identity_key)
);

CREATE INDEX IF NOT EXISTS idx_articles_published_at
    ON articles (published_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ArticleRepository archives merged news so headlines survive cache
// expiry and source outages. Rows are keyed by the same normalized
// title identity the in-memory dedup uses, so an article re-fetched
// from a different source updates in place instead of duplicating.
type ArticleRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewArticleRepository(pool PgxPool, tracer trace.Tracer) *ArticleRepository {
	return &ArticleRepository{pool: pool, tracer: tracer}
}

func (r *ArticleRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "article-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createArticlesTable)
	return err
}

func (r *ArticleRepository) UpsertArticles(ctx context.Context, articles []domain.NewsArticle) error {
	if len(articles) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "article-repo.upsert-articles")
	defer span.End()

	batch := &pgx.Batch{}
	for _, a := range articles {
		batch.Queue(
			`INSERT INTO articles (identity_key, title, link, summary, source_id, published_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (identity_key) DO UPDATE SET
			     link = EXCLUDED.link,
			     summary = EXCLUDED.summary,
			     source_id = EXCLUDED.source_id,
			     published_at = EXCLUDED.published_at`,
			a.IdentityKey(), a.Title, a.Link, a.Summary, a.SourceID, a.PublishedAt,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range articles {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *ArticleRepository) ListRecent(ctx context.Context, limit int) ([]domain.NewsArticle, error) {
	_, span := r.tracer.Start(ctx, "article-repo.list-recent")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT title, link, summary, source_id, published_at
		 FROM articles
		 ORDER BY published_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.NewsArticle
	for rows.Next() {
		var a domain.NewsArticle
		if err := rows.Scan(&a.Title, &a.Link, &a.Summary, &a.SourceID, &a.PublishedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
