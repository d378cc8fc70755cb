package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	app "github.com/mohammadpnp/job-feed-import/internal/application/importer"
	"github.com/mohammadpnp/job-feed-import/internal/domain/importrun"
)

// ImportStartAction enqueues a run for the API workers.
func ImportStartAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	out, err := appCtx.StartImport.Execute(ctx, app.StartImportInput{
		SourceLocator: cmd.String("source"),
		Metadata:      map[string]any{"trigger": "cli"},
		Priority:      cmd.Int("priority"),
		Delay:         cmd.Duration("delay"),
	})
	if err != nil {
		return fmt.Errorf("start import: %w", err)
	}
	return renderStartOutput(os.Stdout, out)
}

// ImportRunAction imports a feed in this process without the queue and
// prints the finished run.
func ImportRunAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	run := importrun.NewRun(uuid.NewString(), cmd.String("source"), map[string]any{"trigger": "cli-inline"}, time.Now())
	if err := appCtx.Runs.Create(ctx, run); err != nil {
		return fmt.Errorf("create import run: %w", err)
	}

	progress := func(_ context.Context, pct int) error {
		fmt.Fprintf(os.Stderr, "\rprogress %3d%%", pct)
		return nil
	}
	runErr := appCtx.Runner.Execute(ctx, app.RunRequest{
		ImportRunID:   run.ID,
		SourceLocator: run.SourceLocator,
		Attempt:       1,
	}, progress)
	fmt.Fprintln(os.Stderr)

	out, err := appCtx.GetRun.Execute(ctx, app.GetImportRunInput{ID: run.ID})
	if err != nil {
		return fmt.Errorf("load import run: %w", err)
	}
	if err := renderRun(os.Stdout, out); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("import failed: %w", runErr)
	}
	return nil
}

func ImportRetryAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	out, err := appCtx.RetryImport.Execute(ctx, app.RetryImportInput{ImportRunID: cmd.String("id")})
	if err != nil {
		return fmt.Errorf("retry import: %w", err)
	}
	fmt.Printf("retry of %s\n", out.RetryOf)
	return renderStartOutput(os.Stdout, out.StartImportOutput)
}

func ImportShowAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	out, err := appCtx.GetRun.Execute(ctx, app.GetImportRunInput{ID: cmd.String("id")})
	if err != nil {
		return fmt.Errorf("get import run: %w", err)
	}
	return renderRun(os.Stdout, out)
}

func ImportListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	out, err := appCtx.ListRuns.Execute(ctx, app.ListImportRunsInput{
		Status: cmd.String("status"),
		Page:   cmd.Int("page"),
		Limit:  cmd.Int("limit"),
	})
	if err != nil {
		return fmt.Errorf("list import runs: %w", err)
	}
	return renderRunList(os.Stdout, out)
}

func ImportStatsAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	out, err := appCtx.ListRuns.Stats(ctx)
	if err != nil {
		return fmt.Errorf("import stats: %w", err)
	}
	return renderStats(os.Stdout, out)
}

func ImportPruneAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	deleted, err := appCtx.Prune.Execute(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("deleted %d import runs\n", deleted)
	return nil
}
