package main

import (
	"log"

	"showdown-tracker/internal/app"
	_ "showdown-tracker/migrations"
)

// Build-time variables injected by GoReleaser via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	application, err := app.NewWithVersion(Version, Commit, Date)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	// registers routes, cron jobs and the file watcher hooks
	if err := application.Bootstrap(); err != nil {
		log.Fatalf("Failed to bootstrap app: %v", err)
	}

	// serve, superuser, migrate and the tracker commands
	if err := application.Start(); err != nil {
		log.Fatal(err)
	}
}
