package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/infrastructure/db/models"
)

type ImportRunRepository struct {
	db *gorm.DB
}

func NewImportRunRepository(db *gorm.DB) *ImportRunRepository {
	return &ImportRunRepository{db: db}
}

func (r *ImportRunRepository) Create(ctx context.Context, run *domain.Run) error {
	row, err := toImportRunModel(run)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create import run: %w", err)
	}
	run.ID = row.ID
	return nil
}

// Save overwrites every column of an existing run. An empty QueueJobID
// leaves the stored one in place.
func (r *ImportRunRepository) Save(ctx context.Context, run *domain.Run) error {
	row, err := toImportRunModel(run)
	if err != nil {
		return err
	}

	omit := []string{"id", "created_at"}
	if run.QueueJobID == "" {
		omit = append(omit, "queue_job_id")
	}

	res := r.db.WithContext(ctx).Model(&models.ImportRun{}).
		Where("id = ?", run.ID).
		Select("*").
		Omit(omit...).
		Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("save import run: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *ImportRunRepository) Get(ctx context.Context, id string) (*domain.Run, error) {
	var row models.ImportRun
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("get import run: %w", err)
	}
	return toImportRunDomain(row)
}

func (r *ImportRunRepository) SetQueueJobID(ctx context.Context, id, queueJobID string) error {
	res := r.db.WithContext(ctx).Model(&models.ImportRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"queue_job_id": queueJobID,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("set queue job id: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *ImportRunRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Run, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ImportRun{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count import runs: %w", err)
	}

	var rows []models.ImportRun
	if err := query.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list import runs: %w", err)
	}

	runs := make([]domain.Run, 0, len(rows))
	for _, row := range rows {
		run, err := toImportRunDomain(row)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *run)
	}
	return runs, total, nil
}

type statusCount struct {
	Status       string
	Runs         int64
	TotalFetched int64
	NewCount     int64
	UpdatedCount int64
	FailedCount  int64
}

func (r *ImportRunRepository) Summarize(ctx context.Context) (domain.Summary, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).Model(&models.ImportRun{}).
		Select(`status,
  COUNT(*) AS runs,
  COALESCE(SUM(total_fetched), 0) AS total_fetched,
  COALESCE(SUM(new_count), 0) AS new_count,
  COALESCE(SUM(updated_count), 0) AS updated_count,
  COALESCE(SUM(failed_count), 0) AS failed_count`).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize import runs: %w", err)
	}

	summary := domain.Summary{ByStatus: map[domain.Status]int64{}}
	for _, row := range rows {
		summary.TotalRuns += row.Runs
		summary.ByStatus[domain.Status(row.Status)] = row.Runs
		summary.TotalFetched += row.TotalFetched
		summary.New += row.NewCount
		summary.Updated += row.UpdatedCount
		summary.Failed += row.FailedCount
	}
	return summary, nil
}

func (r *ImportRunRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ImportRun{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete import runs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func toImportRunModel(run *domain.Run) (models.ImportRun, error) {
	newJobs, err := jsonColumn(run.NewJobs, "[]")
	if err != nil {
		return models.ImportRun{}, err
	}
	updatedJobs, err := jsonColumn(run.UpdatedJobs, "[]")
	if err != nil {
		return models.ImportRun{}, err
	}
	failedJobs, err := jsonColumn(run.FailedJobs, "[]")
	if err != nil {
		return models.ImportRun{}, err
	}
	errs, err := jsonColumn(run.Errors, "[]")
	if err != nil {
		return models.ImportRun{}, err
	}
	metadata, err := jsonColumn(run.Metadata, "{}")
	if err != nil {
		return models.ImportRun{}, err
	}

	return models.ImportRun{
		ID:           run.ID,
		SourceURL:    run.SourceLocator,
		QueueJobID:   nullableText(run.QueueJobID),
		Status:       string(run.Status),
		StartTime:    run.StartTime,
		EndTime:      run.EndTime,
		DurationMS:   run.Duration.Milliseconds(),
		TotalFetched: run.TotalFetched,
		TotalCount:   run.Statistics.Total,
		NewCount:     run.Statistics.New,
		UpdatedCount: run.Statistics.Updated,
		FailedCount:  run.Statistics.Failed,
		NewJobs:      newJobs,
		UpdatedJobs:  updatedJobs,
		FailedJobs:   failedJobs,
		Errors:       errs,
		RetryCount:   run.RetryCount,
		LastRetryAt:  run.LastRetryAt,
		Metadata:     metadata,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
	}, nil
}

func toImportRunDomain(row models.ImportRun) (*domain.Run, error) {
	run := &domain.Run{
		ID:            row.ID,
		SourceLocator: row.SourceURL,
		Status:        domain.Status(row.Status),
		StartTime:     row.StartTime,
		EndTime:       row.EndTime,
		Duration:      time.Duration(row.DurationMS) * time.Millisecond,
		TotalFetched:  row.TotalFetched,
		Statistics: domain.Statistics{
			Total:   row.TotalCount,
			New:     row.NewCount,
			Updated: row.UpdatedCount,
			Failed:  row.FailedCount,
		},
		RetryCount:  row.RetryCount,
		LastRetryAt: row.LastRetryAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.QueueJobID != nil {
		run.QueueJobID = *row.QueueJobID
	}

	if err := decodeColumn(row.NewJobs, &run.NewJobs); err != nil {
		return nil, fmt.Errorf("decode new jobs of run %s: %w", row.ID, err)
	}
	if err := decodeColumn(row.UpdatedJobs, &run.UpdatedJobs); err != nil {
		return nil, fmt.Errorf("decode updated jobs of run %s: %w", row.ID, err)
	}
	if err := decodeColumn(row.FailedJobs, &run.FailedJobs); err != nil {
		return nil, fmt.Errorf("decode failed jobs of run %s: %w", row.ID, err)
	}
	if err := decodeColumn(row.Errors, &run.Errors); err != nil {
		return nil, fmt.Errorf("decode errors of run %s: %w", row.ID, err)
	}
	if err := decodeColumn(row.Metadata, &run.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata of run %s: %w", row.ID, err)
	}
	if run.Metadata == nil {
		run.Metadata = map[string]any{}
	}
	return run, nil
}

// jsonColumn encodes v, using empty when v is nil.
func jsonColumn[T any](v T, empty string) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	if string(raw) == "null" {
		return datatypes.JSON(empty), nil
	}
	return datatypes.JSON(raw), nil
}

func decodeColumn(raw datatypes.JSON, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
