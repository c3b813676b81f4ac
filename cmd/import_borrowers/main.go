package main

import (
	"flag"
	"fmt"
	"os"

	"school-library/config"
	"school-library/importer"
	"school-library/library"
)

func main() {
	cfg := config.Load()

	path := flag.String("file", "alumnos.xlsx", "Roster file (.xlsx or .csv) with RUT/Nombre/Curso columns")
	db := flag.String("db", cfg.DatabasePath, "Path to the SQLite database")
	flag.Parse()

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	mgr, err := library.NewManager(*db, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	defer mgr.Close()

	fmt.Printf("Importing students from %s...\n", *path)

	res, err := importer.ImportFile(mgr.Borrowers, *path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nImport complete!")
	fmt.Printf("New students imported:      %d\n", res.Imported)
	fmt.Printf("Skipped (already on file):  %d\n", res.Duplicates)
	fmt.Printf("Invalid rows:               %d\n", res.Invalid)
	for _, e := range res.Errors {
		fmt.Printf("  %s\n", e)
	}
}
