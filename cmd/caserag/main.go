package main

import (
	"github.com/joho/godotenv"

	"caserag/internal/cli"
)

func main() {
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	cli.Execute()
}
