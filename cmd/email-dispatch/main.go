// Command email-dispatch sends every scheduled custom email that is due and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"coalition-api/config"
	"coalition-api/repository"
	"coalition-api/services"
)

func main() {
	var (
		limit    int
		dryRun   bool
		lockName string
	)
	flag.IntVar(&limit, "limit", 0, "maximum number of emails to send (optional)")
	flag.BoolVar(&dryRun, "dry-run", false, "list due emails without sending them")
	flag.StringVar(&lockName, "lock-name", services.EmailDispatchLock, "MySQL advisory lock name (empty to disable)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		config.Log.Fatalf("Failed to load configuration: %v", err)
	}
	if f := config.InitLogging(cfg); f != nil {
		defer f.Close()
	}
	log := config.Log

	if limit < 0 {
		log.Fatal("limit must be greater than or equal to 0")
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal(err)
	}

	dispatcher := services.NewEmailDispatcher(repository.NewEmailHistoryRepository(db), config.NewSMTPMailer(cfg.SMTP)).
		WithLogo(cfg.AppLogoURL)
	dispatcher.Limit = limit
	dispatcher.DryRun = dryRun

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	var report services.DispatchReport
	err = repository.WithAdvisoryLock(ctx, db, lockName, func() error {
		var runErr error
		report, runErr = dispatcher.DispatchDue(ctx, time.Now())
		return runErr
	})
	if errors.Is(err, repository.ErrLockHeld) {
		log.Warn("email dispatch already running (advisory lock held)")
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("email dispatch failed: %v", err)
	}

	fmt.Printf("Due: %d, claimed: %d, sent: %d, failed: %d (dry run: %t)\n",
		report.Due, report.Claimed, report.Sent, report.Failed, report.DryRun)
}
