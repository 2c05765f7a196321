package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	_ "modernc.org/sqlite"
)

// SQLite stores documents as JSON text in a local database file.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS transcripts (
	video_id   TEXT PRIMARY KEY,
	transcript TEXT NOT NULL,
	method     TEXT NOT NULL,
	cached_at  INTEGER NOT NULL,
	length     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS research_results (
	id           TEXT PRIMARY KEY,
	industry_key TEXT NOT NULL,
	ts           INTEGER NOT NULL,
	doc          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS research_results_industry_ts ON research_results (industry_key, ts);
CREATE TABLE IF NOT EXISTS industry_knowledge (
	industry_key TEXT PRIMARY KEY,
	last_updated INTEGER NOT NULL,
	doc          TEXT NOT NULL
);`

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single writer
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	slog.Info("store: sqlite opened", slog.String("path", path))
	return &SQLite{db: db}, nil
}

func (s *SQLite) GetTranscript(ctx context.Context, videoID string) (engine.TranscriptRecord, error) {
	var (
		rec      engine.TranscriptRecord
		method   string
		cachedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT video_id, transcript, method, cached_at, length FROM transcripts WHERE video_id = ?`,
		videoID,
	).Scan(&rec.VideoID, &rec.Transcript, &method, &cachedAt, &rec.Length)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.TranscriptRecord{}, ErrNotFound
	}
	if err != nil {
		return engine.TranscriptRecord{}, fmt.Errorf("sqlite: get transcript: %w", err)
	}
	rec.Method = engine.TranscriptMethod(method)
	rec.CachedAt = time.Unix(0, cachedAt).UTC()
	return rec, nil
}

func (s *SQLite) PutTranscript(ctx context.Context, rec engine.TranscriptRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts (video_id, transcript, method, cached_at, length)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(video_id) DO UPDATE SET
		   transcript = excluded.transcript,
		   method     = excluded.method,
		   cached_at  = excluded.cached_at,
		   length     = excluded.length`,
		rec.VideoID, rec.Transcript, string(rec.Method), rec.CachedAt.UnixNano(), rec.Length,
	)
	if err != nil {
		return fmt.Errorf("sqlite: put transcript: %w", err)
	}
	return nil
}

func (s *SQLite) DeleteTranscript(ctx context.Context, videoID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE video_id = ?`, videoID)
	if err != nil {
		return false, fmt.Errorf("sqlite: delete transcript: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLite) TranscriptStats(ctx context.Context) (engine.TranscriptCacheStats, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT method, COUNT(*), COALESCE(SUM(length), 0) FROM transcripts GROUP BY method`)
	if err != nil {
		return engine.TranscriptCacheStats{}, fmt.Errorf("sqlite: transcript stats: %w", err)
	}
	defer rows.Close()

	b := newStatsBuilder()
	for rows.Next() {
		var (
			method string
			count  int
			length int64
		)
		if err := rows.Scan(&method, &count, &length); err != nil {
			return engine.TranscriptCacheStats{}, fmt.Errorf("sqlite: scan stats: %w", err)
		}
		b.add(method, count, length)
	}
	if err := rows.Err(); err != nil {
		return engine.TranscriptCacheStats{}, fmt.Errorf("sqlite: stats rows: %w", err)
	}
	return b.result(), nil
}

func (s *SQLite) SaveResult(ctx context.Context, res engine.ResearchResult) error {
	key := res.IndustryKey
	if key == "" {
		key = engine.IndustryKey(res.Industry)
	}
	res.FromCache = false
	doc, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("sqlite: encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO research_results (id, industry_key, ts, doc) VALUES (?, ?, ?, ?)`,
		res.ID, key, res.Timestamp.UnixNano(), string(doc),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save result: %w", err)
	}
	return nil
}

func (s *SQLite) LatestResult(ctx context.Context, industryKey string) (engine.ResearchResult, error) {
	list, err := s.ListResults(ctx, engine.ResultFilter{Industry: industryKey, Limit: 1})
	if err != nil {
		return engine.ResearchResult{}, err
	}
	if len(list) == 0 {
		return engine.ResearchResult{}, ErrNotFound
	}
	return list[0], nil
}

func (s *SQLite) ListResults(ctx context.Context, f engine.ResultFilter) ([]engine.ResearchResult, error) {
	var (
		where []string
		args  []any
	)
	if key := engine.IndustryKey(f.Industry); key != "" {
		where = append(where, "industry_key = ?")
		args = append(args, key)
	}
	if !f.Since.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, f.Since.UnixNano())
	}
	q := `SELECT industry_key, doc FROM research_results`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, listLimit(f.Limit))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list results: %w", err)
	}
	defer rows.Close()

	var out []engine.ResearchResult
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, fmt.Errorf("sqlite: scan result: %w", err)
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

func (s *SQLite) DeleteIndustry(ctx context.Context, industryKey string) (int64, error) {
	key := engine.IndustryKey(industryKey)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `DELETE FROM research_results WHERE industry_key = ?`, key)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete results: %w", err)
	}
	n, _ := res.RowsAffected()
	if _, err := tx.ExecContext(ctx, `DELETE FROM industry_knowledge WHERE industry_key = ?`, key); err != nil {
		return 0, fmt.Errorf("sqlite: delete knowledge: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return n, nil
}

func (s *SQLite) UpsertKnowledge(ctx context.Context, k engine.IndustryKnowledge) error {
	key := k.IndustryKey
	if key == "" {
		key = engine.IndustryKey(k.Industry)
	}
	doc, err := json.Marshal(k)
	if err != nil {
		return fmt.Errorf("sqlite: encode knowledge: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO industry_knowledge (industry_key, last_updated, doc) VALUES (?, ?, ?)
		 ON CONFLICT(industry_key) DO UPDATE SET last_updated = excluded.last_updated, doc = excluded.doc`,
		key, k.LastUpdated.UnixNano(), string(doc),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert knowledge: %w", err)
	}
	return nil
}

func (s *SQLite) GetKnowledge(ctx context.Context, industryKey string) (engine.IndustryKnowledge, error) {
	key := engine.IndustryKey(industryKey)
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM industry_knowledge WHERE industry_key = ?`, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.IndustryKnowledge{}, ErrNotFound
	}
	if err != nil {
		return engine.IndustryKnowledge{}, fmt.Errorf("sqlite: get knowledge: %w", err)
	}
	var k engine.IndustryKnowledge
	if err := json.Unmarshal([]byte(doc), &k); err != nil {
		return engine.IndustryKnowledge{}, fmt.Errorf("sqlite: decode knowledge: %w", err)
	}
	k.IndustryKey = key
	return k, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
