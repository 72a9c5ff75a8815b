// Package main provides the entry point for the article exporter.
package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/yourusername/article-exporter/cmd"
)

// Set via -ldflags "-X main.version=... -X main.commit=... -X main.date=..."
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cmd.SetVersionInfo(version, commit, date)
	cmd.Execute()
}
