package importrun_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		stats domain.Statistics
		want  domain.Status
	}{
		{name: "all new", stats: domain.Statistics{Total: 5, New: 5}, want: domain.StatusCompleted},
		{name: "some failed", stats: domain.Statistics{Total: 5, Updated: 3, Failed: 2}, want: domain.StatusPartial},
		{name: "all failed", stats: domain.Statistics{Total: 4, Failed: 4}, want: domain.StatusFailed},
		{name: "empty feed", stats: domain.Statistics{}, want: domain.StatusFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := domain.Classify(tc.stats); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestRunLifecycleCompleted(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	run := domain.NewRun("run-1", "https://jobicy.com/feed", nil, start)
	if run.Status != domain.StatusPending {
		t.Fatalf("expected pending, got %s", run.Status)
	}

	if err := run.Begin(start, 1); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	end := start.Add(3 * time.Second)
	err := run.Finish(domain.Outcome{
		Statistics: domain.Statistics{Total: 3, New: 2, Updated: 0, Failed: 1},
		NewJobs:    []domain.JobSummary{{JobID: "a"}, {JobID: "b"}},
		FailedJobs: []domain.FailedJob{domain.NewFailedJob("c", "", "missing title")},
	}, end)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	if run.Status != domain.StatusPartial {
		t.Fatalf("expected partial, got %s", run.Status)
	}
	if run.Duration != 3*time.Second {
		t.Fatalf("unexpected duration: %s", run.Duration)
	}
	if run.FailedJobs[0].Title != "unknown" {
		t.Fatalf("expected default title, got %q", run.FailedJobs[0].Title)
	}
}

func TestRunFinishCapsSamples(t *testing.T) {
	t.Parallel()

	now := time.Now()
	run := domain.NewRun("run-1", "src", nil, now)
	if err := run.Begin(now, 1); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	jobs := make([]domain.JobSummary, 150)
	if err := run.Finish(domain.Outcome{
		Statistics: domain.Statistics{Total: 150, New: 150},
		NewJobs:    jobs,
	}, now); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if len(run.NewJobs) != domain.MaxSamples {
		t.Fatalf("expected %d samples, got %d", domain.MaxSamples, len(run.NewJobs))
	}
}

func TestRunTerminalIsFinal(t *testing.T) {
	t.Parallel()

	now := time.Now()
	run := domain.NewRun("run-1", "src", nil, now)
	_ = run.Begin(now, 1)
	_ = run.Finish(domain.Outcome{Statistics: domain.Statistics{Total: 1, New: 1}}, now)

	if err := run.Begin(now, 1); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := run.Begin(now, 2); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected completed run to stay terminal, got %v", err)
	}
	if err := run.Fail(domain.ErrorEntry{Message: "boom"}, now); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRunFailAndReattempt(t *testing.T) {
	t.Parallel()

	start := time.Now()
	run := domain.NewRun("run-1", "src", nil, start)
	_ = run.Begin(start, 1)

	if err := run.Fail(domain.ErrorEntry{
		Kind:    "fetch_error",
		Message: strings.Repeat("x", 1500),
		Stack:   strings.Repeat("y", 2500),
	}, start.Add(time.Second)); err != nil {
		t.Fatalf("fail failed: %v", err)
	}

	if run.Status != domain.StatusFailed {
		t.Fatalf("expected failed, got %s", run.Status)
	}
	if run.EndTime == nil || run.Duration != time.Second {
		t.Fatalf("expected end time and duration, got %v %s", run.EndTime, run.Duration)
	}
	if len(run.Errors) != 1 || len(run.Errors[0].Message) != 1000 || len(run.Errors[0].Stack) != 2000 {
		t.Fatalf("unexpected error log: %d entries", len(run.Errors))
	}

	if err := run.Begin(start, 1); err == nil {
		t.Fatal("expected first attempt to be rejected on a failed run")
	}
	if err := run.Begin(start.Add(5*time.Second), 2); err != nil {
		t.Fatalf("expected re-attempt to re-enter processing, got %v", err)
	}
	if run.EndTime != nil {
		t.Fatal("expected end time to be cleared")
	}
	if err := run.Begin(start.Add(6*time.Second), 3); err != nil {
		t.Fatalf("expected stalled processing run to be re-entered, got %v", err)
	}
}

func TestRunMarkRetried(t *testing.T) {
	t.Parallel()

	now := time.Now()
	run := domain.NewRun("run-1", "src", nil, now)
	if err := run.MarkRetried(now); !errors.Is(err, domain.ErrNotRetryable) {
		t.Fatalf("expected ErrNotRetryable, got %v", err)
	}

	_ = run.Begin(now, 1)
	_ = run.Finish(domain.Outcome{Statistics: domain.Statistics{Total: 2, New: 1, Failed: 1}}, now)

	if err := run.MarkRetried(now); err != nil {
		t.Fatalf("expected partial run to be retryable, got %v", err)
	}
	if run.RetryCount != 1 || run.LastRetryAt == nil {
		t.Fatalf("unexpected retry bookkeeping: %d %v", run.RetryCount, run.LastRetryAt)
	}
	if run.Status != domain.StatusPartial {
		t.Fatalf("expected status to stay partial, got %s", run.Status)
	}
}

func TestNewFailedJobTruncates(t *testing.T) {
	t.Parallel()

	f := domain.NewFailedJob(strings.Repeat("s", 300), strings.Repeat("t", 300), strings.Repeat("r", 900))
	if len(f.SourceID) != 200 || len(f.Title) != 100 || len(f.Reason) != 500 {
		t.Fatalf("unexpected lengths: %d %d %d", len(f.SourceID), len(f.Title), len(f.Reason))
	}
}
