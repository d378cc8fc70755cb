package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	app "github.com/mohammadpnp/job-feed-import/internal/application/importer"
	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
	"github.com/mohammadpnp/job-feed-import/internal/domain/queue"
)

const timeLayout = "2006-01-02 15:04:05"

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func renderStartOutput(w io.Writer, out app.StartImportOutput) error {
	table := tablewriter.NewWriter(w)
	table.Header("Import run", "Queue job", "Status")
	if err := table.Append(out.ImportRunID, out.QueueJobID, out.Status); err != nil {
		return err
	}
	return table.Render()
}

func renderRun(w io.Writer, run app.ImportRunOutput) error {
	table := tablewriter.NewWriter(w)
	table.Header("Field", "Value")

	rows := [][]string{
		{"ID", run.ID},
		{"Source", run.SourceURL},
		{"Status", string(run.Status)},
		{"Queue job", run.QueueJobID},
		{"Started", formatTime(run.StartTime)},
		{"Finished", formatTime(run.EndTime)},
		{"Duration", (time.Duration(run.DurationMS) * time.Millisecond).String()},
		{"Fetched", strconv.Itoa(run.TotalFetched)},
		{"New", strconv.Itoa(run.Statistics.New)},
		{"Updated", strconv.Itoa(run.Statistics.Updated)},
		{"Failed", strconv.Itoa(run.Statistics.Failed)},
		{"Success rate", fmt.Sprintf("%.1f%%", run.SuccessRate)},
		{"Retries", strconv.Itoa(run.RetryCount)},
	}
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(run.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		errTable := tablewriter.NewWriter(w)
		errTable.Header("Time", "Kind", "Message")
		for _, e := range run.Errors {
			if err := errTable.Append(e.Timestamp.Local().Format(timeLayout), e.Kind, e.Message); err != nil {
				return err
			}
		}
		if err := errTable.Render(); err != nil {
			return err
		}
	}

	if len(run.FailedJobs) > 0 {
		fmt.Fprintln(w, "\nFailed records:")
		failTable := tablewriter.NewWriter(w)
		failTable.Header("Source ID", "Title", "Reason")
		for _, f := range run.FailedJobs {
			if err := failTable.Append(f.SourceID, f.Title, f.Reason); err != nil {
				return err
			}
		}
		return failTable.Render()
	}
	return nil
}

func renderRunList(w io.Writer, out app.ListImportRunsOutput) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Status", "Source", "New", "Updated", "Failed", "Created")
	for _, run := range out.Items {
		created := run.CreatedAt
		if err := table.Append(
			run.ID,
			string(run.Status),
			run.SourceURL,
			strconv.Itoa(run.Statistics.New),
			strconv.Itoa(run.Statistics.Updated),
			strconv.Itoa(run.Statistics.Failed),
			formatTime(&created),
		); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d/%d, %d runs\n", out.Page, max(out.TotalPages, 1), out.Total)
	return err
}

func renderStats(w io.Writer, stats app.ImportStatsOutput) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")

	statuses := make([]string, 0, len(stats.ByStatus))
	for status := range stats.ByStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)

	rows := [][]string{
		{"Runs", strconv.FormatInt(stats.TotalRuns, 10)},
	}
	for _, s := range statuses {
		rows = append(rows, []string{"Runs " + s, strconv.FormatInt(stats.ByStatus[importrun.Status(s)], 10)})
	}
	rows = append(rows,
		[]string{"Fetched", strconv.FormatInt(stats.TotalFetched, 10)},
		[]string{"New", strconv.FormatInt(stats.New, 10)},
		[]string{"Updated", strconv.FormatInt(stats.Updated, 10)},
		[]string{"Failed", strconv.FormatInt(stats.Failed, 10)},
		[]string{"Success rate", fmt.Sprintf("%.1f%%", stats.SuccessRate)},
	)
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderQueueStats(w io.Writer, stats queue.Stats) error {
	table := tablewriter.NewWriter(w)
	table.Header("State", "Entries")
	rows := [][]string{
		{"waiting", strconv.FormatInt(stats.Waiting, 10)},
		{"active", strconv.FormatInt(stats.Active, 10)},
		{"delayed", strconv.FormatInt(stats.Delayed, 10)},
		{"completed", strconv.FormatInt(stats.Completed, 10)},
		{"failed", strconv.FormatInt(stats.Failed, 10)},
		{"total", strconv.FormatInt(stats.Total, 10)},
		{"paused", strconv.FormatBool(stats.Paused)},
	}
	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return err
		}
	}
	return table.Render()
}

func renderQueueEntries(w io.Writer, entries []queue.Entry) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "State", "Import run", "Attempts", "Progress", "Created", "Reason")
	for _, e := range entries {
		created := e.CreatedAt
		if err := table.Append(
			e.ID,
			string(e.State),
			e.Payload.ImportRunID,
			fmt.Sprintf("%d/%d", e.AttemptsMade, e.MaxAttempts),
			strconv.Itoa(e.Progress)+"%",
			formatTime(&created),
			e.FailedReason,
		); err != nil {
			return err
		}
	}
	return table.Render()
}
