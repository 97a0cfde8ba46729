package main

import (
	"context"
	"flag"
	"log"
	"time"

	"feedpulse/internal/config"
	"feedpulse/internal/database/migration"
	"feedpulse/internal/database/postgres"
	"feedpulse/internal/database/seeder"
)

func main() {
	dir := flag.String("dir", "migrations", "migrations directory")
	seed := flag.Bool("seed", false, "seed default feed sources after migrating")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	r := migration.Runner{Dir: *dir}
	if err := r.Run(ctx, db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Printf("[Migrate] migrations applied")

	if *seed {
		s := seeder.Runner{Seeders: seeder.Defaults()}
		if err := s.Run(ctx, db); err != nil {
			log.Fatalf("seeding failed: %v", err)
		}
		log.Printf("[Migrate] default feed sources seeded")
	}
}
