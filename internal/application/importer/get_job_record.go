package importer

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/mohammadpnp/job-feed-import/internal/domain/job"
)

var jobIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

type GetJobRecordInput struct {
	ID string
}

type GetJobRecord interface {
	Execute(ctx context.Context, in GetJobRecordInput) (job.Record, error)
}

type getJobRecord struct {
	repo job.QueryRepository
}

func NewGetJobRecord(repo job.QueryRepository) GetJobRecord {
	return &getJobRecord{repo: repo}
}

func (uc *getJobRecord) Execute(ctx context.Context, in GetJobRecordInput) (job.Record, error) {
	if !jobIDPattern.MatchString(in.ID) {
		return job.Record{}, ErrInvalidJobID
	}

	record, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return job.Record{}, ErrJobNotFound
		}
		return job.Record{}, fmt.Errorf("%w: %v", ErrGetJob, err)
	}

	return *record, nil
}
