package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"github.com/wheresmywater/backend/internal/redis"
	"github.com/wheresmywater/backend/internal/setup"
	"github.com/wheresmywater/backend/internal/setup/config"
	"github.com/wheresmywater/backend/internal/setup/telemetry"
	"github.com/wheresmywater/backend/internal/worker/core"
	"github.com/wheresmywater/backend/internal/worker/purge"
	"go.uber.org/zap"
)

const (
	// WorkerLogDir specifies where worker log files are stored.
	WorkerLogDir = "logs/worker_logs"

	// PurgeWorker expires old votes and resyncs the affected fountains.
	PurgeWorker = "purge"

	// restartDelay is how long a crashed worker waits before restarting.
	restartDelay = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "worker",
		Usage: "Run background workers",
		Commands: []*cli.Command{
			{
				Name:  PurgeWorker,
				Usage: "Start the vote purge worker",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "once",
						Usage: "Run a single purge pass and exit",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runPurge(ctx, c.Bool("once"))
				},
			},
			{
				Name:  "resync",
				Usage: "Recompute the filter of every fountain from its live votes",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runResync(ctx)
				},
			},
			{
				Name:  "status",
				Usage: "List worker heartbeats",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return printStatuses(ctx)
				},
			},
		},
	}

	return app.Run(ctx, os.Args)
}

// runPurge starts the purge worker and restarts it if it panics.
func runPurge(ctx context.Context, once bool) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, PurgeWorker)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	logger := app.LogManager.GetWorkerLogger(PurgeWorker)
	reporter := core.NewStatusReporter(app.StatusClient, PurgeWorker, logger)
	w := purge.New(app.DB.Model().Vote(), app.DB.Service().Vote(), reporter, &app.Config.Common.Voting, logger)

	if once {
		result, err := w.RunOnce(ctx)
		if err != nil {
			return err
		}
		logger.Info("Purge pass finished",
			zap.Int("deleted", result.Deleted),
			zap.Int("fountains", result.Fountains),
			zap.Int("changed", result.Changed))
		return nil
	}

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Worker execution failed", zap.Any("panic", r))
				}
			}()

			logger.Info("Starting worker")
			w.Start(ctx)
		}()

		if ctx.Err() != nil {
			return nil
		}

		logger.Warn("Worker stopped unexpectedly, restarting", zap.Duration("delay", restartDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(restartDelay):
		}
	}
}

// runResync recomputes every fountain's filter.
func runResync(ctx context.Context) error {
	app, err := setup.InitializeApp(ctx, telemetry.ServiceWorker, WorkerLogDir, "resync")
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer app.Cleanup(context.Background())

	fountains, err := app.DB.Model().Fountain().GetFountains(ctx)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(fountains))
	for _, f := range fountains {
		ids = append(ids, f.ID)
	}

	changed, err := app.DB.Service().Vote().ResyncFountains(ctx, ids)
	if err != nil {
		return err
	}

	app.Logger.Info("Resync finished",
		zap.Int("fountains", len(ids)),
		zap.Int("changed", changed))
	return nil
}

// printStatuses lists the heartbeats of running workers.
func printStatuses(ctx context.Context) error {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return err
	}

	manager := redis.NewManager(&cfg.Common.Redis, zap.NewNop())
	defer manager.Close()

	client, err := manager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return err
	}

	statuses, err := core.NewMonitor(client, zap.NewNop()).GetAllStatuses(ctx)
	if err != nil {
		return err
	}

	if len(statuses) == 0 {
		fmt.Println("No workers reporting")
		return nil
	}

	now := time.Now()
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tID\tTASK\tPROGRESS\tHEALTHY\tLAST SEEN")
	for _, s := range statuses {
		state := "offline"
		if s.Online(now) {
			state = now.Sub(s.LastSeen).Round(time.Second).String() + " ago"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%%\t%t\t%s\n",
			s.WorkerType, s.WorkerID, s.CurrentTask, s.Progress, s.IsHealthy, state)
	}
	return tw.Flush()
}
