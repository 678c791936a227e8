// Command migrate applies the schema explicitly. Production disables the
// automatic migration that development runs on connect, so deploys run this
// before rolling the API.
package main

import (
	"log"

	"quill/internal/config"
	"quill/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(database.Models()...); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration complete")
}
