// Command importcandidates seeds the candidate store from a CSV export.
//
//	go run ./cmd/scripts/importcandidates candidates.csv
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/config"
	mongorepo "github.com/ArowuTest/crownbid-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/crownbid-backend/internal/utils"
	"github.com/ArowuTest/crownbid-backend/pkg/mongodb"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	if len(os.Args) < 2 {
		log.Fatal("CSV file path is required as a command line argument")
	}
	csvFilePath := os.Args[1]

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Store.Driver != "mongo" {
		log.Fatal("importcandidates writes to MongoDB; set STORE_DRIVER=mongo")
	}
	loc, err := time.LoadLocation(cfg.Settlement.Timezone)
	if err != nil {
		log.Fatalf("Invalid settlement timezone: %v", err)
	}

	ctx := context.Background()
	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	file, err := os.Open(csvFilePath)
	if err != nil {
		log.Fatalf("Failed to open CSV file: %v", err)
	}
	defer file.Close()

	db := client.Database(cfg.MongoDB.Database)
	importer := utils.NewCandidateImporter(mongorepo.NewCandidateRepository(db), loc)
	result, err := importer.ImportCandidates(ctx, file)
	if err != nil {
		log.Fatalf("Failed to import candidates: %v", err)
	}

	for _, rowErr := range result.Errors {
		log.Println(rowErr)
	}
	log.Printf("Import completed: %d rows, %d created, %d updated, %d errors",
		result.TotalRows, result.Created, result.Updated, len(result.Errors))
}
