package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/playmatatu/orbitsim/internal/config"
	"github.com/playmatatu/orbitsim/internal/database"
	"github.com/playmatatu/orbitsim/internal/migrations"
	"github.com/playmatatu/orbitsim/internal/operator"
	"github.com/playmatatu/orbitsim/internal/scenario"
)

func main() {
	scenarioFile := flag.String("scenario", "", "scenario JSON file to store (default: built-in system)")
	skipOperator := flag.Bool("no-operator", false, "do not create the operator account")
	flag.Parse()

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := migrations.RunMigrations(cfg.DatabaseURL, migrations.DefaultDir); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	if !*skipOperator {
		name := os.Getenv("OPERATOR_NAME")
		if name == "" {
			name = "operator"
			log.Printf("Using default operator name: %s", name)
		}
		key := os.Getenv("OPERATOR_KEY")
		if key == "" {
			key = "change-me-in-production"
			log.Printf("WARNING: Using default operator key. Set OPERATOR_KEY env var in production!")
		}
		roles := []string{"operator"}
		if r := os.Getenv("OPERATOR_ROLES"); r != "" {
			roles = strings.Split(r, ",")
		}

		if err := operator.Create(db, name, key, roles); err != nil {
			log.Fatalf("Failed to create operator: %v", err)
		}
		log.Printf("Operator %s created/updated with roles %v", name, roles)
	}

	sc := scenario.Default()
	if *scenarioFile != "" {
		sc, err = scenario.LoadFile(*scenarioFile)
		if err != nil {
			log.Fatalf("Failed to load scenario: %v", err)
		}
	}

	id, err := scenario.NewRepository(db).Save(context.Background(), sc)
	if err != nil {
		log.Fatalf("Failed to store scenario: %v", err)
	}
	log.Printf("Scenario %q stored with id %d (%d bodies)", sc.Name, id, len(sc.Bodies))
}
