// Package store persists transcripts, research results and industry
// knowledge. Backends: in-memory, SQLite, PostgreSQL and MongoDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
)

// ErrNotFound is returned when a keyed lookup has no record.
var ErrNotFound = errors.New("store: not found")

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Store is the persistence surface of the research pipeline.
type Store interface {
	GetTranscript(ctx context.Context, videoID string) (engine.TranscriptRecord, error)
	PutTranscript(ctx context.Context, rec engine.TranscriptRecord) error
	DeleteTranscript(ctx context.Context, videoID string) (bool, error)
	TranscriptStats(ctx context.Context) (engine.TranscriptCacheStats, error)

	SaveResult(ctx context.Context, res engine.ResearchResult) error
	LatestResult(ctx context.Context, industryKey string) (engine.ResearchResult, error)
	ListResults(ctx context.Context, f engine.ResultFilter) ([]engine.ResearchResult, error)
	// DeleteIndustry removes every result and the knowledge record for
	// industryKey. It returns the number of results removed.
	DeleteIndustry(ctx context.Context, industryKey string) (int64, error)

	UpsertKnowledge(ctx context.Context, k engine.IndustryKnowledge) error
	GetKnowledge(ctx context.Context, industryKey string) (engine.IndustryKnowledge, error)

	Close() error
}

// Open selects a backend from configuration. An explicit StoreBackend wins;
// otherwise MongoDB, then PostgreSQL, then a local SQLite file.
func Open(ctx context.Context, c engine.Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(c.StoreBackend))
	if backend == "" {
		switch {
		case c.MongoURI != "":
			backend = BackendMongo
		case c.DatabaseURL != "":
			backend = BackendPostgres
		default:
			backend = BackendSQLite
		}
	}

	switch backend {
	case BackendMemory:
		slog.Info("store: using in-memory backend")
		return NewMemory(), nil
	case BackendMongo:
		db := c.MongoDatabase
		if db == "" {
			db = "leadgen"
		}
		return OpenMongo(ctx, c.MongoURI, db)
	case BackendPostgres:
		return OpenPostgres(ctx, c.DatabaseURL)
	case BackendSQLite:
		path := c.SQLitePath
		if path == "" {
			path = DefaultSQLitePath()
		}
		return OpenSQLite(path)
	}
	return nil, fmt.Errorf("store: unknown backend %q", backend)
}

// DefaultSQLitePath is ~/.leadgen/research.db.
func DefaultSQLitePath() string {
	return filepath.Join(os.Getenv("HOME"), ".leadgen", "research.db")
}

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return min(n, maxListLimit)
}

// statsBuilder accumulates per-method counts into TranscriptCacheStats.
type statsBuilder struct {
	stats engine.TranscriptCacheStats
}

func newStatsBuilder() *statsBuilder {
	return &statsBuilder{stats: engine.TranscriptCacheStats{Methods: map[string]int{}}}
}

func (b *statsBuilder) add(method string, count int, length int64) {
	if method == "" {
		method = string(engine.MethodUnknown)
	}
	b.stats.Methods[method] += count
	b.stats.TotalCached += count
	b.stats.TotalLength += length
}

func (b *statsBuilder) result() engine.TranscriptCacheStats {
	if b.stats.TotalCached > 0 {
		b.stats.AverageLength = float64(b.stats.TotalLength) / float64(b.stats.TotalCached)
	}
	return b.stats
}
