// Command reconcile compares the stock ledger with the component registry
// once and prints the drift report as JSON. Exit status 2 means drift was found.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oem-ev-warranty/parts-service/internal/application"
	"github.com/oem-ev-warranty/parts-service/internal/config"
	"github.com/oem-ev-warranty/parts-service/internal/infrastructure/persistence"
	"github.com/oem-ev-warranty/parts-service/pkg/database"
	"github.com/oem-ev-warranty/parts-service/pkg/logging"
)

var (
	envFile = flag.String("env", "", "optional .env file loaded before the process environment")
	timeout = flag.Duration("timeout", 2*time.Minute, "upper bound for the whole run")
	quiet   = flag.Bool("quiet", false, "print nothing when there is no drift")
)

const exitDrift = 2

func main() {
	flag.Parse()
	os.Exit(run(os.Stdout, os.Stderr))
}

func run(stdout, stderr io.Writer) int {
	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	logConfig := cfg.LoggingConfig()
	logConfig.Output = stderr
	logger := logging.New(logConfig)

	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		return 1
	}
	defer func() { _ = database.Close(db) }()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	uow := persistence.NewUnitOfWork(db, *timeout, nil, logger)
	report, err := application.NewReconciliationService(uow, nil, logger).Run(ctx)
	if err != nil {
		logger.WithError(err).Error("Reconciliation failed")
		return 1
	}

	return printReport(stdout, report, *quiet)
}

func printReport(w io.Writer, report *application.ReconciliationReportDTO, quiet bool) int {
	code := 0
	if len(report.Drift) > 0 {
		code = exitDrift
	}
	if quiet && code == 0 {
		return 0
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return 1
	}
	return code
}
