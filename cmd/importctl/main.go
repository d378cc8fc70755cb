package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mohammadpnp/job-feed-import/cmd/importctl/commands"
)

func envFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "env",
		Usage: "path to an env file",
		Value: ".env",
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "importctl",
		Usage: "operate the job feed importer",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "trigger and inspect import runs",
				Commands: []*cli.Command{
					{
						Name:  "start",
						Usage: "enqueue an import of one feed",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "source", Usage: "feed URL or file:// locator", Required: true},
							&cli.IntFlag{Name: "priority", Usage: "lower runs first"},
							&cli.DurationFlag{Name: "delay", Usage: "wait before the entry becomes claimable"},
						},
						Action: commands.ImportStartAction,
					},
					{
						Name:  "run",
						Usage: "import one feed in this process, bypassing the queue",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "source", Usage: "feed URL or file:// locator", Required: true},
						},
						Action: commands.ImportRunAction,
					},
					{
						Name:  "retry",
						Usage: "re-import the source of a failed or partial run",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "id", Usage: "import run id", Required: true},
						},
						Action: commands.ImportRetryAction,
					},
					{
						Name:  "show",
						Usage: "show one import run",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "id", Usage: "import run id", Required: true},
						},
						Action: commands.ImportShowAction,
					},
					{
						Name:  "list",
						Usage: "list recent import runs",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "status", Usage: "pending, processing, completed, failed or partial"},
							&cli.IntFlag{Name: "page", Value: 1},
							&cli.IntFlag{Name: "limit", Value: 20},
						},
						Action: commands.ImportListAction,
					},
					{
						Name:   "stats",
						Usage:  "aggregate statistics over all runs",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.ImportStatsAction,
					},
					{
						Name:   "prune",
						Usage:  "delete runs older than RUN_RETENTION",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.ImportPruneAction,
					},
				},
			},
			{
				Name:  "queue",
				Usage: "inspect and operate the import queue",
				Commands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "entry counts by state",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.QueueStatsAction,
					},
					{
						Name:  "list",
						Usage: "list entries in one state",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "state", Usage: "waiting, active, delayed, completed or failed", Value: "failed"},
							&cli.IntFlag{Name: "limit", Value: 100},
						},
						Action: commands.QueueListAction,
					},
					{
						Name:  "retry",
						Usage: "move a failed entry back to waiting",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "id", Usage: "queue entry id", Required: true},
						},
						Action: commands.QueueRetryAction,
					},
					{
						Name:  "clean",
						Usage: "remove completed or failed entries",
						Flags: []cli.Flag{
							envFlag(),
							&cli.StringFlag{Name: "state", Usage: "completed or failed", Required: true},
						},
						Action: commands.QueueCleanAction,
					},
					{
						Name:   "pause",
						Usage:  "stop workers from claiming entries",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.QueuePauseAction,
					},
					{
						Name:   "resume",
						Usage:  "let workers claim entries again",
						Flags:  []cli.Flag{envFlag()},
						Action: commands.QueueResumeAction,
					},
				},
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
