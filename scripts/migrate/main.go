// Command migrate applies schema.sql to the configured PostgreSQL database.
// All statements are idempotent, so rerunning it is safe.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/teachhub/teachhub-api/pkg/config"
	"github.com/teachhub/teachhub-api/pkg/database"
)

func main() {
	var schemaPath string
	flag.StringVar(&schemaPath, "schema", filepath.Join("scripts", "migrate", "schema.sql"), "Path to schema SQL file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	schema, err := os.ReadFile(schemaPath)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	log.Printf("schema applied to %s", cfg.Database.Name)
}
