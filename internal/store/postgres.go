package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres stores results and knowledge as JSONB documents.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres creates a pgx pool and runs schema migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &Postgres{pool: pool}
	if err := db.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("store: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return db, nil
}

func (p *Postgres) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := p.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Debug("store: migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (p *Postgres) GetTranscript(ctx context.Context, videoID string) (engine.TranscriptRecord, error) {
	var (
		rec    engine.TranscriptRecord
		method string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT video_id, transcript, method, cached_at, length FROM transcripts WHERE video_id = $1`,
		videoID,
	).Scan(&rec.VideoID, &rec.Transcript, &method, &rec.CachedAt, &rec.Length)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.TranscriptRecord{}, ErrNotFound
	}
	if err != nil {
		return engine.TranscriptRecord{}, fmt.Errorf("postgres: get transcript: %w", err)
	}
	rec.Method = engine.TranscriptMethod(method)
	rec.CachedAt = rec.CachedAt.UTC()
	return rec, nil
}

func (p *Postgres) PutTranscript(ctx context.Context, rec engine.TranscriptRecord) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO transcripts (video_id, transcript, method, cached_at, length)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (video_id) DO UPDATE SET
		   transcript = EXCLUDED.transcript,
		   method     = EXCLUDED.method,
		   cached_at  = EXCLUDED.cached_at,
		   length     = EXCLUDED.length`,
		rec.VideoID, rec.Transcript, string(rec.Method), rec.CachedAt, rec.Length,
	)
	if err != nil {
		return fmt.Errorf("postgres: put transcript: %w", err)
	}
	return nil
}

func (p *Postgres) DeleteTranscript(ctx context.Context, videoID string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM transcripts WHERE video_id = $1`, videoID)
	if err != nil {
		return false, fmt.Errorf("postgres: delete transcript: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) TranscriptStats(ctx context.Context) (engine.TranscriptCacheStats, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT method, COUNT(*), COALESCE(SUM(length), 0) FROM transcripts GROUP BY method`)
	if err != nil {
		return engine.TranscriptCacheStats{}, fmt.Errorf("postgres: transcript stats: %w", err)
	}
	defer rows.Close()

	b := newStatsBuilder()
	for rows.Next() {
		var (
			method string
			count  int64
			length int64
		)
		if err := rows.Scan(&method, &count, &length); err != nil {
			return engine.TranscriptCacheStats{}, fmt.Errorf("postgres: scan stats: %w", err)
		}
		b.add(method, int(count), length)
	}
	if err := rows.Err(); err != nil {
		return engine.TranscriptCacheStats{}, fmt.Errorf("postgres: stats rows: %w", err)
	}
	return b.result(), nil
}

func (p *Postgres) SaveResult(ctx context.Context, res engine.ResearchResult) error {
	key := res.IndustryKey
	if key == "" {
		key = engine.IndustryKey(res.Industry)
	}
	res.FromCache = false
	doc, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("postgres: encode result: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO research_results (id, industry_key, ts, doc) VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (id) DO UPDATE SET industry_key = EXCLUDED.industry_key, ts = EXCLUDED.ts, doc = EXCLUDED.doc`,
		res.ID, key, res.Timestamp, string(doc),
	)
	if err != nil {
		return fmt.Errorf("postgres: save result: %w", err)
	}
	return nil
}

func (p *Postgres) LatestResult(ctx context.Context, industryKey string) (engine.ResearchResult, error) {
	list, err := p.ListResults(ctx, engine.ResultFilter{Industry: industryKey, Limit: 1})
	if err != nil {
		return engine.ResearchResult{}, err
	}
	if len(list) == 0 {
		return engine.ResearchResult{}, ErrNotFound
	}
	return list[0], nil
}

func (p *Postgres) ListResults(ctx context.Context, f engine.ResultFilter) ([]engine.ResearchResult, error) {
	var (
		where []string
		args  []any
	)
	if key := engine.IndustryKey(f.Industry); key != "" {
		args = append(args, key)
		where = append(where, fmt.Sprintf("industry_key = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("ts >= $%d", len(args)))
	}
	q := `SELECT industry_key, doc::text FROM research_results`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, listLimit(f.Limit))
	q += fmt.Sprintf(" ORDER BY ts DESC LIMIT $%d", len(args))

	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list results: %w", err)
	}
	defer rows.Close()

	var out []engine.ResearchResult
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, fmt.Errorf("postgres: scan result: %w", err)
		}
		var r engine.ResearchResult
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			slog.Warn("store: skipping undecodable result", slog.String("industry", key), slog.Any("error", err))
			continue
		}
		r.IndustryKey = key
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) DeleteIndustry(ctx context.Context, industryKey string) (int64, error) {
	key := engine.IndustryKey(industryKey)
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `DELETE FROM research_results WHERE industry_key = $1`, key)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete results: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM industry_knowledge WHERE industry_key = $1`, key); err != nil {
		return 0, fmt.Errorf("postgres: delete knowledge: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) UpsertKnowledge(ctx context.Context, k engine.IndustryKnowledge) error {
	key := k.IndustryKey
	if key == "" {
		key = engine.IndustryKey(k.Industry)
	}
	doc, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("postgres: encode knowledge: %w", err)
	}
	updated := k.LastUpdated
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO industry_knowledge (industry_key, last_updated, doc) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (industry_key) DO UPDATE SET last_updated = EXCLUDED.last_updated, doc = EXCLUDED.doc`,
		key, updated, string(doc),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert knowledge: %w", err)
	}
	return nil
}

func (p *Postgres) GetKnowledge(ctx context.Context, industryKey string) (engine.IndustryKnowledge, error) {
	key := engine.IndustryKey(industryKey)
	var doc string
	err := p.pool.QueryRow(ctx, `SELECT doc::text FROM industry_knowledge WHERE industry_key = $1`, key).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.IndustryKnowledge{}, ErrNotFound
	}
	if err != nil {
		return engine.IndustryKnowledge{}, fmt.Errorf("postgres: get knowledge: %w", err)
	}
	var k engine.IndustryKnowledge
	if err := json.Unmarshal([]byte(doc), &k); err != nil {
		return engine.IndustryKnowledge{}, fmt.Errorf("postgres: decode knowledge: %w", err)
	}
	k.IndustryKey = key
	return k, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
