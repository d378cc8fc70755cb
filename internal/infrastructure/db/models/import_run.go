package models

import (
	"time"

	"gorm.io/datatypes"
)

type ImportRun struct {
	ID            string  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SourceURL     string  `gorm:"type:text;not null;index"`
	QueueJobID    *string `gorm:"type:text"`
	Status        string  `gorm:"type:text;not null;index"`
	StartTime     *time.Time
	EndTime       *time.Time
	DurationMS    int64          `gorm:"not null;default:0"`
	TotalFetched  int            `gorm:"not null;default:0"`
	TotalCount    int            `gorm:"not null;default:0"`
	NewCount      int            `gorm:"not null;default:0"`
	UpdatedCount  int            `gorm:"not null;default:0"`
	FailedCount   int            `gorm:"not null;default:0"`
	NewJobs       datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	UpdatedJobs   datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	FailedJobs    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	Errors        datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	RetryCount    int            `gorm:"not null;default:0"`
	LastRetryAt   *time.Time
	Metadata      datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt     time.Time      `gorm:"index"`
	UpdatedAt     time.Time
}

func (ImportRun) TableName() string {
	return "import_runs"
}
