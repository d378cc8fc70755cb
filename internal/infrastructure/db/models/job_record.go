package models

import (
	"time"

	"gorm.io/datatypes"
)

type JobRecord struct {
	ID            string         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey"`
	SourceID      string         `gorm:"type:text;not null;uniqueIndex:ux_job_records_source"`
	SourceName    string         `gorm:"type:text;not null;uniqueIndex:ux_job_records_source"`
	SourceFeedURL string         `gorm:"type:text;not null;default:''"`
	Title         string         `gorm:"type:text;not null"`
	Company       string         `gorm:"type:text;not null;default:''"`
	Description   string         `gorm:"type:text;not null;default:''"`
	Location      string         `gorm:"type:text;not null;default:''"`
	Categories    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"`
	JobType       string         `gorm:"type:text;not null"`
	Salary        datatypes.JSON `gorm:"type:jsonb"`
	SourceURL     string         `gorm:"type:text;not null;default:''"`
	ApplyURL      string         `gorm:"type:text;not null;default:''"`
	PublishedDate time.Time
	ExpiryDate    time.Time
	RawData       datatypes.JSON `gorm:"type:jsonb"`
	Status        string         `gorm:"type:text;not null;default:'active'"`
	LastImportID  *string        `gorm:"type:uuid"`
	ImportCount   int            `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (JobRecord) TableName() string {
	return "job_records"
}
