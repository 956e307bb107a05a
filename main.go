package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"shipcerts/cmd"
	"shipcerts/internal/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Replaced by the configured logger once a command starts.
	if err := logger.Setup(logger.DefaultConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cmd.Execute()
}
