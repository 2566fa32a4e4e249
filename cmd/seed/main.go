package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/bookstore-backend/config"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	"github.com/ikkim/bookstore-backend/internal/db"
	"github.com/ikkim/bookstore-backend/internal/spreadsheet"
)

// Imports a catalog workbook (same columns as GET /api/books/export/).
// Books are owned by the given user, the configured admin by default.
func main() {
	owner := flag.String("owner", "", "username owning the imported books (default: ADMIN_USERNAME)")
	yes := flag.Bool("y", false, "skip the confirmation prompt")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: go run ./cmd/seed [-owner username] [-y] <xlsx_file_path>")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	filePath := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	if err := db.SeedAdmin(db.GetDB(), cfg.Admin); err != nil {
		log.Fatal("Failed to seed admin user:", err)
	}

	username := *owner
	if username == "" {
		username = cfg.Admin.Username
	}
	user, err := repository.NewUserRepository(db.GetDB()).FindByUsername(username)
	if err != nil {
		log.Fatalf("Owner %q not found: %v", username, err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	file, err := os.Open(filePath)
	if err != nil {
		log.Fatal("Failed to open XLSX:", err)
	}
	defer file.Close()

	books, skipped, err := spreadsheet.ReadBooks(file)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}
	for _, s := range skipped {
		fmt.Printf("  row %d skipped: %s\n", s.Row, s.Reason)
	}
	fmt.Printf("Total books to import: %d (owner: %s)\n", len(books), user.Username)

	if !*yes {
		fmt.Print("Do you want to proceed with the import? (yes/no): ")
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "yes" && confirm != "y" {
			fmt.Println("Import cancelled.")
			return
		}
	}

	bookService := service.NewBookService(repository.NewBookRepository(db.GetDB()), nil)
	created, err := bookService.ImportBooks(user.ID, books)
	if err != nil {
		log.Fatalf("Import stopped after %d books: %v", created, err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Books created: %d, already present: %d\n", created, len(books)-created)
}
