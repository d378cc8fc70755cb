package mongostore

import (
	"time"

	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

const (
	jobsCollection = "job_records"
	runsCollection = "import_runs"
)

type jobDocument struct {
	ID            string         `bson:"_id"`
	SourceID      string         `bson:"sourceId"`
	SourceName    string         `bson:"sourceName"`
	SourceFeedURL string         `bson:"sourceFeedUrl"`
	Title         string         `bson:"title"`
	Company       string         `bson:"company"`
	Description   string         `bson:"description"`
	Location      string         `bson:"location"`
	Categories    []string       `bson:"categories"`
	JobType       string         `bson:"jobType"`
	Salary        *job.Salary    `bson:"salary,omitempty"`
	SourceURL     string         `bson:"sourceUrl"`
	ApplyURL      string         `bson:"applyUrl"`
	PublishedDate time.Time      `bson:"publishedDate"`
	ExpiryDate    time.Time      `bson:"expiryDate"`
	RawData       map[string]any `bson:"rawData,omitempty"`
	Status        string         `bson:"status"`
	LastImportID  string         `bson:"lastImportId"`
	ImportCount   int            `bson:"importCount"`
	CreatedAt     time.Time      `bson:"createdAt"`
	UpdatedAt     time.Time      `bson:"updatedAt"`
}

func (d jobDocument) toDomain() job.Record {
	categories := d.Categories
	if categories == nil {
		categories = []string{}
	}
	return job.Record{
		ID: d.ID,
		Draft: job.Draft{
			SourceID:      d.SourceID,
			Title:         d.Title,
			Company:       d.Company,
			Description:   d.Description,
			Location:      d.Location,
			Categories:    categories,
			JobType:       job.Type(d.JobType),
			Salary:        d.Salary,
			SourceURL:     d.SourceURL,
			ApplyURL:      d.ApplyURL,
			Source:        job.Source{Name: d.SourceName, URL: d.SourceFeedURL},
			PublishedDate: d.PublishedDate,
			ExpiryDate:    d.ExpiryDate,
			RawData:       d.RawData,
		},
		Status:       job.Status(d.Status),
		LastImportID: d.LastImportID,
		ImportCount:  d.ImportCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type runDocument struct {
	ID           string                 `bson:"_id"`
	SourceURL    string                 `bson:"sourceUrl"`
	QueueJobID   string                 `bson:"queueJobId,omitempty"`
	Status       string                 `bson:"status"`
	StartTime    *time.Time             `bson:"startTime,omitempty"`
	EndTime      *time.Time             `bson:"endTime,omitempty"`
	DurationMS   int64                  `bson:"duration"`
	TotalFetched int                    `bson:"totalFetched"`
	Statistics   runStatistics          `bson:"statistics"`
	NewJobs      []importrun.JobSummary `bson:"newJobs"`
	UpdatedJobs  []importrun.JobSummary `bson:"updatedJobs"`
	FailedJobs   []importrun.FailedJob  `bson:"failedJobs"`
	Errors       []runError             `bson:"errors"`
	RetryCount   int                    `bson:"retryCount"`
	LastRetryAt  *time.Time             `bson:"lastRetryAt,omitempty"`
	Metadata     map[string]any         `bson:"metadata"`
	CreatedAt    time.Time              `bson:"createdAt"`
	UpdatedAt    time.Time              `bson:"updatedAt"`
}

type runStatistics struct {
	Total   int `bson:"total"`
	New     int `bson:"new"`
	Updated int `bson:"updated"`
	Failed  int `bson:"failed"`
}

type runError struct {
	Timestamp time.Time      `bson:"timestamp"`
	Kind      string         `bson:"kind"`
	Message   string         `bson:"message"`
	Stack     string         `bson:"stack,omitempty"`
	Context   map[string]any `bson:"context,omitempty"`
}

func newRunDocument(run *importrun.Run) runDocument {
	errs := make([]runError, 0, len(run.Errors))
	for _, e := range run.Errors {
		errs = append(errs, runError(e))
	}
	metadata := run.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return runDocument{
		ID:           run.ID,
		SourceURL:    run.SourceLocator,
		QueueJobID:   run.QueueJobID,
		Status:       string(run.Status),
		StartTime:    run.StartTime,
		EndTime:      run.EndTime,
		DurationMS:   run.Duration.Milliseconds(),
		TotalFetched: run.TotalFetched,
		Statistics:   runStatistics(run.Statistics),
		NewJobs:      orEmpty(run.NewJobs),
		UpdatedJobs:  orEmpty(run.UpdatedJobs),
		FailedJobs:   orEmpty(run.FailedJobs),
		Errors:       errs,
		RetryCount:   run.RetryCount,
		LastRetryAt:  run.LastRetryAt,
		Metadata:     metadata,
		CreatedAt:    run.CreatedAt,
		UpdatedAt:    run.UpdatedAt,
	}
}

func (d runDocument) toDomain() *importrun.Run {
	errs := make([]importrun.ErrorEntry, 0, len(d.Errors))
	for _, e := range d.Errors {
		errs = append(errs, importrun.ErrorEntry(e))
	}
	metadata := d.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &importrun.Run{
		ID:            d.ID,
		SourceLocator: d.SourceURL,
		QueueJobID:    d.QueueJobID,
		Status:        importrun.Status(d.Status),
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		Duration:      time.Duration(d.DurationMS) * time.Millisecond,
		TotalFetched:  d.TotalFetched,
		Statistics:    importrun.Statistics(d.Statistics),
		NewJobs:       d.NewJobs,
		UpdatedJobs:   d.UpdatedJobs,
		FailedJobs:    d.FailedJobs,
		Errors:        errs,
		RetryCount:    d.RetryCount,
		LastRetryAt:   d.LastRetryAt,
		Metadata:      metadata,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
