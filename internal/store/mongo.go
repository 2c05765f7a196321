package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/msaym22/final-lead-gen-sub001/internal/engine"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	transcriptsCollection = "transcripts"
	resultsCollection     = "research_results"
	knowledgeCollection   = "industry_knowledge"
)

// Mongo stores each record type in its own collection.
type Mongo struct {
	client      *mongo.Client
	transcripts *mongo.Collection
	results     *mongo.Collection
	knowledge   *mongo.Collection
}

// OpenMongo connects, pings and ensures indexes.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	m := &Mongo{
		client:      client,
		transcripts: db.Collection(transcriptsCollection),
		results:     db.Collection(resultsCollection),
		knowledge:   db.Collection(knowledgeCollection),
	}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	slog.Info("store: mongo connected", slog.String("database", database))
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	if _, err := m.transcripts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "video_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongo index transcripts: %w", err)
	}
	if _, err := m.results.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "industry_key", Value: 1}, {Key: "timestamp", Value: -1}},
	}); err != nil {
		return fmt.Errorf("mongo index results: %w", err)
	}
	if _, err := m.knowledge.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "industry_key", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("mongo index knowledge: %w", err)
	}
	return nil
}

func (m *Mongo) GetTranscript(ctx context.Context, videoID string) (engine.TranscriptRecord, error) {
	var rec engine.TranscriptRecord
	err := m.transcripts.FindOne(ctx, bson.M{"video_id": videoID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return engine.TranscriptRecord{}, ErrNotFound
	}
	if err != nil {
		return engine.TranscriptRecord{}, fmt.Errorf("mongo: get transcript: %w", err)
	}
	rec.CachedAt = rec.CachedAt.UTC()
	return rec, nil
}

func (m *Mongo) PutTranscript(ctx context.Context, rec engine.TranscriptRecord) error {
	_, err := m.transcripts.UpdateOne(ctx,
		bson.M{"video_id": rec.VideoID},
		bson.M{"$set": rec},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: put transcript: %w", err)
	}
	return nil
}

func (m *Mongo) DeleteTranscript(ctx context.Context, videoID string) (bool, error) {
	res, err := m.transcripts.DeleteOne(ctx, bson.M{"video_id": videoID})
	if err != nil {
		return false, fmt.Errorf("mongo: delete transcript: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (m *Mongo) TranscriptStats(ctx context.Context) (engine.TranscriptCacheStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$method"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "length", Value: bson.D{{Key: "$sum", Value: "$length"}}},
		}}},
	}
	cursor, err := m.transcripts.Aggregate(ctx, pipeline)
	if err != nil {
		return engine.TranscriptCacheStats{}, fmt.Errorf("mongo: transcript stats: %w", err)
	}
	defer cursor.Close(ctx)

	b := newStatsBuilder()
	for cursor.Next(ctx) {
		var row struct {
			Method string `bson:"_id"`
			Count  int    `bson:"count"`
			Length int64  `bson:"length"`
		}
		if err := cursor.Decode(&row); err != nil {
			continue
		}
		b.add(row.Method, row.Count, row.Length)
	}
	if err := cursor.Err(); err != nil {
		return engine.TranscriptCacheStats{}, fmt.Errorf("mongo: stats cursor: %w", err)
	}
	return b.result(), nil
}

func (m *Mongo) SaveResult(ctx context.Context, res engine.ResearchResult) error {
	if res.IndustryKey == "" {
		res.IndustryKey = engine.IndustryKey(res.Industry)
	}
	_, err := m.results.ReplaceOne(ctx, bson.M{"_id": res.ID}, res, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: save result: %w", err)
	}
	return nil
}

func (m *Mongo) LatestResult(ctx context.Context, industryKey string) (engine.ResearchResult, error) {
	list, err := m.ListResults(ctx, engine.ResultFilter{Industry: industryKey, Limit: 1})
	if err != nil {
		return engine.ResearchResult{}, err
	}
	if len(list) == 0 {
		return engine.ResearchResult{}, ErrNotFound
	}
	return list[0], nil
}

func (m *Mongo) ListResults(ctx context.Context, f engine.ResultFilter) ([]engine.ResearchResult, error) {
	filter := bson.M{}
	if key := engine.IndustryKey(f.Industry); key != "" {
		filter["industry_key"] = key
	}
	if !f.Since.IsZero() {
		filter["timestamp"] = bson.M{"$gte": f.Since}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(listLimit(f.Limit)))

	cursor, err := m.results.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list results: %w", err)
	}
	defer cursor.Close(ctx)

	var out []engine.ResearchResult
	for cursor.Next(ctx) {
		var r engine.ResearchResult
		if err := cursor.Decode(&r); err != nil {
			slog.Warn("store: skipping undecodable result", slog.Any("error", err))
			continue
		}
		r.Timestamp = r.Timestamp.UTC()
		out = append(out, r)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: results cursor: %w", err)
	}
	return out, nil
}

func (m *Mongo) DeleteIndustry(ctx context.Context, industryKey string) (int64, error) {
	key := engine.IndustryKey(industryKey)
	res, err := m.results.DeleteMany(ctx, bson.M{"industry_key": key})
	if err != nil {
		return 0, fmt.Errorf("mongo: delete results: %w", err)
	}
	if _, err := m.knowledge.DeleteOne(ctx, bson.M{"industry_key": key}); err != nil {
		return res.DeletedCount, fmt.Errorf("mongo: delete knowledge: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) UpsertKnowledge(ctx context.Context, k engine.IndustryKnowledge) error {
	if k.IndustryKey == "" {
		k.IndustryKey = engine.IndustryKey(k.Industry)
	}
	_, err := m.knowledge.UpdateOne(ctx,
		bson.M{"industry_key": k.IndustryKey},
		bson.M{"$set": k},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: upsert knowledge: %w", err)
	}
	return nil
}

func (m *Mongo) GetKnowledge(ctx context.Context, industryKey string) (engine.IndustryKnowledge, error) {
	var k engine.IndustryKnowledge
	err := m.knowledge.FindOne(ctx, bson.M{"industry_key": engine.IndustryKey(industryKey)}).Decode(&k)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return engine.IndustryKnowledge{}, ErrNotFound
	}
	if err != nil {
		return engine.IndustryKnowledge{}, fmt.Errorf("mongo: get knowledge: %w", err)
	}
	return k, nil
}

func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
