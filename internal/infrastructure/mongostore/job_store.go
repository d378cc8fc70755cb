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

	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

// JobStore merges drafts with FindOneAndUpdate(upsert). Two concurrent
// upserts of a new key can race on the unique index; the loser retries once
// and lands on the update path.
type JobStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewJobStore(db *mongo.Database) *JobStore {
	return &JobStore{
		collection: db.Collection(jobsCollection),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *JobStore) Upsert(ctx context.Context, draft job.Draft, importRunID string) (job.UpsertResult, error) {
	res, err := s.upsert(ctx, draft, importRunID)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		res, err = s.upsert(ctx, draft, importRunID)
	}
	if err != nil {
		return job.UpsertResult{}, fmt.Errorf("upsert job %q: %w", draft.SourceID, err)
	}
	return res, nil
}

func (s *JobStore) upsert(ctx context.Context, draft job.Draft, importRunID string) (job.UpsertResult, error) {
	now := s.now()
	categories := draft.Categories
	if categories == nil {
		categories = []string{}
	}

	filter := bson.M{"sourceId": draft.SourceID, "sourceName": draft.Source.Name}
	update := bson.M{
		"$set": bson.M{
			"sourceFeedUrl": draft.Source.URL,
			"title":         draft.Title,
			"company":       draft.Company,
			"description":   draft.Description,
			"location":      draft.Location,
			"categories":    categories,
			"jobType":       string(draft.JobType),
			"salary":        draft.Salary,
			"sourceUrl":     draft.SourceURL,
			"applyUrl":      draft.ApplyURL,
			"publishedDate": draft.PublishedDate,
			"expiryDate":    draft.ExpiryDate,
			"rawData":       draft.RawData,
			"status":        string(job.StatusActive),
			"lastImportId":  importRunID,
			"updatedAt":     now,
		},
		"$inc": bson.M{"importCount": 1},
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc jobDocument
	if err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return job.UpsertResult{}, err
	}
	return job.UpsertResult{Record: doc.toDomain(), IsNew: doc.ImportCount == 1}, nil
}

// JobQuery reads job records by id.
type JobQuery struct {
	collection *mongo.Collection
}

func NewJobQuery(db *mongo.Database) *JobQuery {
	return &JobQuery{collection: db.Collection(jobsCollection)}
}

func (q *JobQuery) GetByID(ctx context.Context, id string) (*job.Record, error) {
	var doc jobDocument
	err := q.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, job.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job record by id: %w", err)
	}
	record := doc.toDomain()
	return &record, nil
}
