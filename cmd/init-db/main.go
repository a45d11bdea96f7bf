package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"modelgw/internal/storage"
)

func main() {
	fmt.Println("Model Gateway - Database Initialization")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		fmt.Fprintf(os.Stderr, "ERROR: DATABASE_URL must be set\n")
		os.Exit(1)
	}

	cfg := storage.DefaultDBConfig()
	cfg.DSN = dsn

	db, err := storage.NewDB(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Database is not reachable: %v\n", err)
		os.Exit(1)
	}

	if err := db.ApplySchema(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Failed to apply schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Schema applied successfully")
}
