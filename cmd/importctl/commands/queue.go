package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func QueueStatsAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	stats, err := appCtx.QueueAdmin.Stats(ctx)
	if err != nil {
		return err
	}
	return renderQueueStats(os.Stdout, stats)
}

func QueueListAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	entries, err := appCtx.QueueAdmin.List(ctx, cmd.String("state"), cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("list %s entries: %w", cmd.String("state"), err)
	}
	return renderQueueEntries(os.Stdout, entries)
}

func QueueRetryAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.QueueAdmin.Retry(ctx, cmd.String("id")); err != nil {
		return fmt.Errorf("retry entry %s: %w", cmd.String("id"), err)
	}
	fmt.Printf("entry %s moved back to waiting\n", cmd.String("id"))
	return nil
}

func QueueCleanAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	out, err := appCtx.QueueAdmin.Clean(ctx, cmd.String("state"))
	if err != nil {
		return fmt.Errorf("clean %s entries: %w", cmd.String("state"), err)
	}
	fmt.Printf("removed %d %s entries\n", out.Removed, out.State)
	return nil
}

func QueuePauseAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.QueueAdmin.Pause(ctx); err != nil {
		return err
	}
	fmt.Println("queue paused")
	return nil
}

func QueueResumeAction(ctx context.Context, cmd *cli.Command) error {
	appCtx, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer appCtx.Close()

	if err := appCtx.QueueAdmin.Resume(ctx); err != nil {
		return err
	}
	fmt.Println("queue resumed")
	return nil
}
