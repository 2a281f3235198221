package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/reckon-dev/reckon/internal/commands"
)

func main() {
	// Load .env from the current directory if present, so RECKON_CONFIG
	// and similar overrides can live next to the repo.
	_ = godotenv.Load()

	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
