package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"english-hub-backend/internal/database"
	"english-hub-backend/internal/importer"
	"english-hub-backend/internal/models"
	"english-hub-backend/internal/repository"
)

func main() {
	godotenv.Load()

	in := flag.String("in", "", "Bank file to import (.json, .yaml, .yml or .pdf)")
	id := flag.String("id", "", "Bank ID used as source_id when starting a session")
	kind := flag.String("kind", string(models.KindExercise), "exercise or exam")
	title := flag.String("title", "", "Title override")
	dbPath := flag.String("db", envOr("BANK_DB_PATH", "./data/banks.db"), "SQLite bank database")
	dryRun := flag.Bool("dry-run", false, "Print the parsed bank as JSON instead of storing it")
	flag.Parse()

	if *in == "" || (*id == "" && !*dryRun) {
		fmt.Fprintf(os.Stderr, "Usage: importer -in <file> -id <bank-id> [-kind exercise|exam] [-title T] [-db path] [-dry-run]\n")
		os.Exit(1)
	}

	doc, err := importer.LoadFile(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *in, err)
		os.Exit(1)
	}

	if *dryRun {
		if err := importer.Normalize(doc); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid bank: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(doc)
		return
	}

	db, err := database.OpenBankDB(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening bank database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	bank, err := importer.Import(context.Background(), repository.NewBankRepo(db), doc, *id, models.SessionKind(strings.ToLower(*kind)), *title)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Import failed: %v\n", err)
		os.Exit(1)
	}

	questions := 0
	for _, g := range bank.Groups {
		questions += len(g.Questions)
	}
	fmt.Printf("✓ Imported %q as %s %s: %d groups, %d questions\n", bank.Title, bank.Kind, bank.ID, len(bank.Groups), questions)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
