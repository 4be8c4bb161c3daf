// One-shot entry point for the batch runners, for cron-outside-the-process
// deployments and manual catch-ups. Prints the run summary as JSON; per-item
// failures are reflected in the summary, not the exit code.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/binderbay/backend/internal/config"
	"github.com/binderbay/backend/internal/database"
	"github.com/binderbay/backend/internal/jobs"
	"github.com/binderbay/backend/internal/logging"
	"github.com/binderbay/backend/internal/pricing"
	"github.com/binderbay/backend/internal/providers"
)

func main() {
	job := flag.String("job", "snapshots", "which job to run: snapshots or alerts")
	flag.Parse()

	cfg := config.Load()
	log := logging.New()

	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	db := database.GetDB()
	store := pricing.NewSnapshotStore(db)

	ctx := context.Background()
	var summary interface{}
	var err error

	switch *job {
	case "snapshots":
		primary := providers.NewCardmarketService(cfg.PrimaryBaseURL, cfg.PrimaryAPIKey, cfg.ProviderTimeout)
		runner := jobs.NewSnapshotJob(store, primary, cfg.SnapshotPacing, log)
		summary, err = runner.Run(ctx)
	case "alerts":
		engine := jobs.NewAlertEngine(db, store, jobs.NewLogNotifier(log), log)
		summary, err = engine.Run(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown job %q (want snapshots or alerts)\n", *job)
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Str("job", *job).Msg("Job run failed")
		os.Exit(1)
	}

	out, _ := json.Marshal(summary)
	fmt.Println(string(out))
}
