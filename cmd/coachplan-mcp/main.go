// Command coachplan-mcp serves the coachplan MCP tools over stdio,
// reading data from a remote coachplan server.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/coachplan/internal/config"
	"github.com/claude/coachplan/internal/mcp"
	"github.com/claude/coachplan/internal/models"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "coachplan server URL")
	principal := flag.String("principal", "", "acting identity as role:uuid")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("coachplan-mcp", Version)
		return
	}

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" || *principal == "" {
		fmt.Fprintf(os.Stderr, "Usage: coachplan-mcp -server <URL> -principal <role:uuid>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

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

	ds := mcp.NewHTTPClient(*serverURL, models.Principal{ID: id, Role: r})
	s := mcp.New(ds, Version, log)

	log.Info("coachplan-mcp serving on stdio", "server", *serverURL, "version", Version)
	if err := server.ServeStdio(s); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
