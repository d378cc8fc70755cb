package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

type RunRepository struct {
	collection *mongo.Collection
}

func NewRunRepository(db *mongo.Database) *RunRepository {
	return &RunRepository{collection: db.Collection(runsCollection)}
}

func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if _, err := r.collection.InsertOne(ctx, newRunDocument(run)); err != nil {
		return fmt.Errorf("create import run: %w", err)
	}
	return nil
}

// Save overwrites an existing run. An empty QueueJobID leaves the stored
// one in place.
func (r *RunRepository) Save(ctx context.Context, run *domain.Run) error {
	doc := newRunDocument(run)
	set := bson.M{
		"sourceUrl":    doc.SourceURL,
		"status":       doc.Status,
		"startTime":    doc.StartTime,
		"endTime":      doc.EndTime,
		"duration":     doc.DurationMS,
		"totalFetched": doc.TotalFetched,
		"statistics":   doc.Statistics,
		"newJobs":      doc.NewJobs,
		"updatedJobs":  doc.UpdatedJobs,
		"failedJobs":   doc.FailedJobs,
		"errors":       doc.Errors,
		"retryCount":   doc.RetryCount,
		"lastRetryAt":  doc.LastRetryAt,
		"metadata":     doc.Metadata,
		"updatedAt":    doc.UpdatedAt,
	}
	if doc.QueueJobID != "" {
		set["queueJobId"] = doc.QueueJobID
	}

	res, err := r.collection.UpdateByID(ctx, run.ID, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("save import run: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) Get(ctx context.Context, id string) (*domain.Run, error) {
	var doc runDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get import run: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RunRepository) SetQueueJobID(ctx context.Context, id, queueJobID string) error {
	res, err := r.collection.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"queueJobId": queueJobID,
		"updatedAt":  time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("set queue job id: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Run, int64, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count import runs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list import runs: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []runDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode import runs: %w", err)
	}

	runs := make([]domain.Run, 0, len(docs))
	for _, doc := range docs {
		runs = append(runs, *doc.toDomain())
	}
	return runs, total, nil
}

type statusGroup struct {
	Status       string `bson:"_id"`
	Runs         int64  `bson:"runs"`
	TotalFetched int64  `bson:"totalFetched"`
	New          int64  `bson:"new"`
	Updated      int64  `bson:"updated"`
	Failed       int64  `bson:"failed"`
}

func (r *RunRepository) Summarize(ctx context.Context) (domain.Summary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "runs", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "totalFetched", Value: bson.D{{Key: "$sum", Value: "$totalFetched"}}},
			{Key: "new", Value: bson.D{{Key: "$sum", Value: "$statistics.new"}}},
			{Key: "updated", Value: bson.D{{Key: "$sum", Value: "$statistics.updated"}}},
			{Key: "failed", Value: bson.D{{Key: "$sum", Value: "$statistics.failed"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize import runs: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []statusGroup
	if err := cursor.All(ctx, &groups); err != nil {
		return domain.Summary{}, fmt.Errorf("decode import run summary: %w", err)
	}

	summary := domain.Summary{ByStatus: map[domain.Status]int64{}}
	for _, g := range groups {
		summary.TotalRuns += g.Runs
		summary.ByStatus[domain.Status(g.Status)] = g.Runs
		summary.TotalFetched += g.TotalFetched
		summary.New += g.New
		summary.Updated += g.Updated
		summary.Failed += g.Failed
	}
	return summary, nil
}

func (r *RunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("delete import runs: %w", err)
	}
	return res.DeletedCount, nil
}
