package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/db/models"
)

type JobQueryRepository struct {
	db *gorm.DB
}

func NewJobQueryRepository(db *gorm.DB) *JobQueryRepository {
	return &JobQueryRepository{db: db}
}

func (r *JobQueryRepository) GetByID(ctx context.Context, id string) (*job.Record, error) {
	var row models.JobRecord

	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, job.ErrJobNotFound
		}
		return nil, fmt.Errorf("get job record by id: %w", err)
	}

	record := &job.Record{
		ID: row.ID,
		Draft: job.Draft{
			SourceID:      row.SourceID,
			Title:         row.Title,
			Company:       row.Company,
			Description:   row.Description,
			Location:      row.Location,
			JobType:       job.Type(row.JobType),
			SourceURL:     row.SourceURL,
			ApplyURL:      row.ApplyURL,
			Source:        job.Source{Name: row.SourceName, URL: row.SourceFeedURL},
			PublishedDate: row.PublishedDate,
			ExpiryDate:    row.ExpiryDate,
		},
		Status:      job.Status(row.Status),
		ImportCount: row.ImportCount,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.LastImportID != nil {
		record.LastImportID = *row.LastImportID
	}

	if err := decodeColumn(row.Categories, &record.Categories); err != nil {
		return nil, fmt.Errorf("decode categories of job %s: %w", row.ID, err)
	}
	if err := decodeColumn(row.Salary, &record.Salary); err != nil {
		return nil, fmt.Errorf("decode salary of job %s: %w", row.ID, err)
	}
	if err := decodeColumn(row.RawData, &record.RawData); err != nil {
		return nil, fmt.Errorf("decode raw data of job %s: %w", row.ID, err)
	}
	if record.Categories == nil {
		record.Categories = []string{}
	}

	return record, nil
}
