package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/coachplan/internal/config"
	"github.com/claude/coachplan/internal/models"
	"github.com/claude/coachplan/internal/seed"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "coachplan server URL (e.g. https://coachplan.tail1234.ts.net)")
	filePath := flag.String("file", "", "path to YAML catalog file")
	principal := flag.String("principal", "", "acting identity as role:uuid (professional or admin)")
	dryRun := flag.Bool("dry-run", false, "parse the file but don't send to server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("coachplan-seed", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *filePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: coachplan-seed -server <URL> -principal <role:uuid> -file <catalog.yaml> [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if (*serverURL == "" || *principal == "") && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server and -principal are required (or use -dry-run)\n")
		os.Exit(1)
	}

	var actor models.Principal
	if *principal != "" {
		role, id, err := config.ParsePrincipal(*principal)
		if err != nil {
			log.Error("invalid principal", "error", err)
			os.Exit(1)
		}
		r, err := models.ParseRole(role)
		if err != nil {
			log.Error("invalid principal", "error", err)
			os.Exit(1)
		}
		actor = models.Principal{ID: id, Role: r}
		if !actor.IsStaff() {
			log.Error("seeding requires a professional or admin principal", "role", r)
			os.Exit(1)
		}
	}

	file, err := seed.LoadFile(*filePath)
	if err != nil {
		log.Error("failed to load catalog file", "error", err)
		os.Exit(1)
	}
	log.Info("loaded catalog file", "path", *filePath, "exercises", len(file.Exercises))

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	state, err := seed.OpenStateDB(filepath.Join(homeDir, ".coachplan-seed"))
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode: entries will be checked but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeder := seed.New(seed.NewClient(*serverURL, actor), state, *dryRun, log)
	stats, err := seeder.Run(ctx, file)
	printStats(stats)
	if err != nil {
		log.Error("seeding failed", "error", err)
		os.Exit(1)
	}
	log.Info("seeding complete")
}

func printStats(stats *seed.Stats) {
	fmt.Println()
	fmt.Println("=== Seed Summary ===")
	fmt.Printf("  Exercises total:  %d\n", stats.Total)
	fmt.Printf("  Created:          %d\n", stats.Created)
	fmt.Printf("  Already present:  %d\n", stats.Existing)
	fmt.Printf("  Skipped:          %d (seeded before)\n", stats.Skipped)
	fmt.Printf("  Errored:          %d\n", stats.Errored)
	fmt.Println()
}
