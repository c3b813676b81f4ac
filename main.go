package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"school-library/config"
	"school-library/importer"
	"school-library/library"
)

var (
	// Global flags
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "school-library",
	Short: "School library (CRA) catalog, borrowers and loan tracking",
	Long: `school-library manages a school learning-resource center: the book
catalog, the student roster and the loan ledger, stored in a single
SQLite file.

Run "school-library shell" for the interactive circulation desk.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", friendly(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the SQLite database (default from LIBRARY_DB_PATH or library.db)")

	bookCmd.AddCommand(bookAddCmd, bookStockCmd, bookSearchCmd, bookUpdateCmd, bookDeleteCmd)
	borrowerCmd.AddCommand(borrowerAddCmd, borrowerSearchCmd, borrowerHeldCmd, borrowerUpdateCmd, borrowerDeleteCmd)
	loanCmd.AddCommand(loanIssueCmd, loanReturnCmd, loanListCmd)
	rootCmd.AddCommand(bookCmd, borrowerCmd, loanCmd, statsCmd, importCmd, shellCmd)
}

// openManager builds the manager from config plus the --db override.
func openManager() (*library.Manager, *zap.Logger, error) {
	cfg := config.Load()
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	mgr, err := library.NewManager(cfg.DatabasePath, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	return mgr, logger, nil
}

// withManager wraps a command body with manager setup and teardown.
func withManager(fn func(mgr *library.Manager) error) error {
	mgr, logger, err := openManager()
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer mgr.Close()
	return fn(mgr)
}

// friendly turns service errors into circulation-desk messages.
func friendly(err error) string {
	switch {
	case errors.Is(err, library.ErrNotFound):
		return "no matching record found"
	case errors.Is(err, library.ErrDuplicate):
		return "a record with that key already exists"
	case errors.Is(err, library.ErrHasActiveLoans):
		return "blocked: there are still open loans on this record"
	case errors.Is(err, library.ErrDuplicateActiveLoan):
		return "this student already has that book on loan"
	case errors.Is(err, library.ErrNoCopiesAvailable):
		return "no copies of that book are available"
	case errors.Is(err, library.ErrLoanClosed):
		return "that loan was already returned"
	default:
		return err.Error()
	}
}

// ---------------------------------------------------------------------------
// book commands
// ---------------------------------------------------------------------------

var (
	bookISBN      string
	bookPublisher string
	bookYear      int
	bookCategory  string
	bookCopies    int
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Manage the catalog",
}

var bookAddCmd = &cobra.Command{
	Use:   "add <title> <author>",
	Short: "Add a new title to the catalog",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(mgr *library.Manager) error {
			id, err := mgr.Books.Create(bookISBN, args[0], args[1],
				bookPublisher, bookYear, bookCategory, bookCopies)
			if err != nil {
				return err
			}
			fmt.Printf("Added %q (id %d, %d copies)\n", args[0], id, bookCopies)
			return nil
		})
	},
}

var bookStockCmd = &cobra.Command{
	Use:   "stock <isbn> <copies>",
	Short: "Add copies to an existing title",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("copies must be a number: %w", err)
		}
		return withManager(func(mgr *library.Manager) error {
			if err := mgr.Books.AddStock(args[0], delta); err != nil {
				return err
			}
			book, err := mgr.Books.FindByISBN(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%q now has %d copies (%d available)\n",
				book.Title, book.TotalCopies, book.AvailableCopies)
			return nil
		})
	},
}

var bookSearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search the catalog; no term lists titles with copies out",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := ""
		if len(args) == 1 {
			term = args[0]
		}
		return withManager(func(mgr *library.Manager) error {
			books, err := mgr.Books.Search(term)
			if err != nil {
				return err
			}
			printBooks(books)
			return nil
		})
	},
}

var bookUpdateCmd = &cobra.Command{
	Use:   "update <id> <title> <author>",
	Short: "Edit a title's details; copy counts are untouched",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be a number: %w", err)
		}
		return withManager(func(mgr *library.Manager) error {
			if err := mgr.Books.Update(id, bookISBN, args[1], args[2],
				bookPublisher, bookYear, bookCategory); err != nil {
				return err
			}
			fmt.Printf("Updated book %d\n", id)
			return nil
		})
	},
}

var bookDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a title (blocked while it has open loans)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be a number: %w", err)
		}
		return withManager(func(mgr *library.Manager) error {
			if err := mgr.Books.Delete(id); err != nil {
				return err
			}
			fmt.Printf("Deleted book %d\n", id)
			return nil
		})
	},
}

func init() {
	bookAddCmd.Flags().StringVar(&bookISBN, "isbn", "", "ISBN (optional)")
	bookAddCmd.Flags().StringVar(&bookPublisher, "publisher", "", "Publisher")
	bookAddCmd.Flags().IntVar(&bookYear, "year", 0, "Publication year")
	bookAddCmd.Flags().StringVar(&bookCategory, "category", "", "Category")
	bookAddCmd.Flags().IntVar(&bookCopies, "copies", 1, "Number of copies")

	bookUpdateCmd.Flags().StringVar(&bookISBN, "isbn", "", "ISBN (optional)")
	bookUpdateCmd.Flags().StringVar(&bookPublisher, "publisher", "", "Publisher")
	bookUpdateCmd.Flags().IntVar(&bookYear, "year", 0, "Publication year")
	bookUpdateCmd.Flags().StringVar(&bookCategory, "category", "", "Category")
}

// ---------------------------------------------------------------------------
// borrower commands
// ---------------------------------------------------------------------------

var borrowerCohort string

var borrowerCmd = &cobra.Command{
	Use:     "borrower",
	Aliases: []string{"student"},
	Short:   "Manage the student roster",
}

var borrowerAddCmd = &cobra.Command{
	Use:   "add <national-id> <name>",
	Short: "Register a student",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(mgr *library.Manager) error {
			id, err := mgr.Borrowers.Create(args[0], args[1], borrowerCohort)
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s (id %d)\n", args[1], id)
			return nil
		})
	},
}

var borrowerSearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search students; no term lists students holding books",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := ""
		if len(args) == 1 {
			term = args[0]
		}
		return withManager(func(mgr *library.Manager) error {
			borrowers, err := mgr.Borrowers.Search(term)
			if err != nil {
				return err
			}
			printBorrowers(borrowers)
			return nil
		})
	},
}

var borrowerHeldCmd = &cobra.Command{
	Use:   "held <national-id>",
	Short: "List the books a student currently has out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(mgr *library.Manager) error {
			b, err := mgr.Borrowers.FindByNationalID(args[0])
			if err != nil {
				return err
			}
			held, err := mgr.Borrowers.BooksHeld(b.ID)
			if err != nil {
				return err
			}
			if len(held) == 0 {
				fmt.Printf("%s has no books out\n", b.Name)
				return nil
			}
			fmt.Printf("%-15s %-40s %-25s %s\n", "ISBN", "Title", "Author", "Issued")
			for _, h := range held {
				fmt.Printf("%-15s %-40s %-25s %s\n", h.ISBN, h.Title, h.Author, h.IssueDate)
			}
			return nil
		})
	},
}

var borrowerUpdateCmd = &cobra.Command{
	Use:   "update <id> <national-id> <name>",
	Short: "Edit a student's record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be a number: %w", err)
		}
		return withManager(func(mgr *library.Manager) error {
			if err := mgr.Borrowers.Update(id, args[1], args[2], borrowerCohort); err != nil {
				return err
			}
			fmt.Printf("Updated borrower %d\n", id)
			return nil
		})
	},
}

var borrowerDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a student (blocked while they hold books)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be a number: %w", err)
		}
		return withManager(func(mgr *library.Manager) error {
			if err := mgr.Borrowers.Delete(id); err != nil {
				return err
			}
			fmt.Printf("Deleted borrower %d\n", id)
			return nil
		})
	},
}

func init() {
	borrowerAddCmd.Flags().StringVar(&borrowerCohort, "cohort", "", "Class/cohort label")
	borrowerUpdateCmd.Flags().StringVar(&borrowerCohort, "cohort", "", "Class/cohort label")
}

// ---------------------------------------------------------------------------
// loan commands
// ---------------------------------------------------------------------------

var loanBorrowerID int64

var loanCmd = &cobra.Command{
	Use:   "loan",
	Short: "Issue, return and list loans",
}

var loanIssueCmd = &cobra.Command{
	Use:   "issue <book-title-or-isbn> <national-id>",
	Short: "Issue a book to a student",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(mgr *library.Manager) error {
			book, borrower, _, err := mgr.IssueByTerm(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Issued %q to %s\n", book.Title, borrower.Name)
			return nil
		})
	},
}

var loanReturnCmd = &cobra.Command{
	Use:   "return <book-id>",
	Short: "Return a book by its catalog id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("book id must be a number: %w", err)
		}
		return withManager(func(mgr *library.Manager) error {
			loan, err := mgr.ReturnBook(id)
			if err != nil {
				return err
			}
			fmt.Printf("Returned loan %d (issued %s)\n", loan.ID, loan.IssueDate)
			return nil
		})
	},
}

var loanListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all transactions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(mgr *library.Manager) error {
			loans, err := mgr.Loans.ListDetailed(loanBorrowerID)
			if err != nil {
				return err
			}
			fmt.Printf("%-5s %-40s %-25s %-12s %-12s %s\n",
				"ID", "Title", "Borrower", "Issued", "Returned", "Status")
			for _, l := range loans {
				fmt.Printf("%-5d %-40s %-25s %-12s %-12s %s\n",
					l.ID, l.BookTitle, l.BorrowerName, l.IssueDate, l.ReturnDate, l.Status)
			}
			return nil
		})
	},
}

func init() {
	loanListCmd.Flags().Int64Var(&loanBorrowerID, "borrower", 0, "Filter by borrower id")
}

// ---------------------------------------------------------------------------
// stats and import
// ---------------------------------------------------------------------------

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Catalog and circulation summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(mgr *library.Manager) error {
			return printStats(mgr)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import-borrowers <file.xlsx|file.csv>",
	Short: "Bulk-load the student roster from a spreadsheet export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(func(mgr *library.Manager) error {
			res, err := importer.ImportFile(mgr.Borrowers, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Imported: %d\nSkipped (already registered): %d\nInvalid: %d\n",
				res.Imported, res.Duplicates, res.Invalid)
			for _, e := range res.Errors {
				fmt.Println("  ", e)
			}
			return nil
		})
	},
}

func printStats(mgr *library.Manager) error {
	stats, err := mgr.Books.Statistics()
	if err != nil {
		return err
	}
	students, err := mgr.Borrowers.Count()
	if err != nil {
		return err
	}
	open, err := mgr.Loans.CountOpen()
	if err != nil {
		return err
	}
	fmt.Printf("Titles:           %d\n", stats.Titles)
	fmt.Printf("Copies:           %d\n", stats.TotalCopies)
	fmt.Printf("Available:        %d\n", stats.AvailableCopies)
	fmt.Printf("On loan:          %d\n", stats.OnLoanCopies)
	fmt.Printf("Students:         %d\n", students)
	fmt.Printf("Open loans:       %d\n", open)
	return nil
}

func printBooks(books []library.Book) {
	if len(books) == 0 {
		fmt.Println("No books found.")
		return
	}
	fmt.Printf("%-5s %-15s %-40s %-25s %-6s %s\n", "ID", "ISBN", "Title", "Author", "Avail", "Total")
	for _, b := range books {
		fmt.Printf("%-5d %-15s %-40s %-25s %-6d %d\n",
			b.ID, b.ISBN, b.Title, b.Author, b.AvailableCopies, b.TotalCopies)
	}
}

func printBorrowers(borrowers []library.Borrower) {
	if len(borrowers) == 0 {
		fmt.Println("No students found.")
		return
	}
	fmt.Printf("%-5s %-15s %-30s %-10s %s\n", "ID", "National ID", "Name", "Cohort", "Open")
	for _, b := range borrowers {
		fmt.Printf("%-5d %-15s %-30s %-10s %d\n",
			b.ID, library.FormatNationalID(b.NationalID), b.Name, b.Cohort, b.OpenLoans)
	}
}

// ---------------------------------------------------------------------------
// interactive shell
// ---------------------------------------------------------------------------

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive circulation desk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withManager(runShell)
	},
}

func runShell(mgr *library.Manager) error {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("School library circulation desk. Commands:")
	fmt.Println("  issue, return, search book, search student, held, stats, exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			return nil
		}
		switch strings.TrimSpace(scanner.Text()) {
		case "issue":
			handleIssue(scanner, mgr)
		case "return":
			handleReturn(scanner, mgr)
		case "search book":
			handleBookSearch(scanner, mgr)
		case "search student":
			handleStudentSearch(scanner, mgr)
		case "held":
			handleHeld(scanner, mgr)
		case "stats":
			if err := printStats(mgr); err != nil {
				fmt.Println("Error:", friendly(err))
			}
		case "exit", "quit":
			return nil
		case "":
		default:
			fmt.Println("Unknown command.")
		}
	}
}

func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func handleIssue(sc *bufio.Scanner, mgr *library.Manager) {
	term, ok := prompt(sc, "Book title or ISBN: ")
	if !ok {
		return
	}
	nationalID, ok := prompt(sc, "Student national id: ")
	if !ok {
		return
	}
	book, borrower, _, err := mgr.IssueByTerm(term, nationalID)
	if err != nil {
		fmt.Println("Error:", friendly(err))
		return
	}
	fmt.Printf("Issued %q to %s\n", book.Title, borrower.Name)
}

func handleReturn(sc *bufio.Scanner, mgr *library.Manager) {
	input, ok := prompt(sc, "Book id: ")
	if !ok {
		return
	}
	id, err := strconv.ParseInt(input, 10, 64)
	if err != nil {
		fmt.Println("Error: book id must be a number")
		return
	}
	loan, err := mgr.ReturnBook(id)
	if err != nil {
		fmt.Println("Error:", friendly(err))
		return
	}
	fmt.Printf("Returned loan %d (issued %s)\n", loan.ID, loan.IssueDate)
}

func handleBookSearch(sc *bufio.Scanner, mgr *library.Manager) {
	term, ok := prompt(sc, "Term (empty = titles with copies out): ")
	if !ok {
		return
	}
	books, err := mgr.Books.Search(term)
	if err != nil {
		fmt.Println("Error:", friendly(err))
		return
	}
	printBooks(books)
}

func handleStudentSearch(sc *bufio.Scanner, mgr *library.Manager) {
	term, ok := prompt(sc, "Term (empty = students holding books): ")
	if !ok {
		return
	}
	borrowers, err := mgr.Borrowers.Search(term)
	if err != nil {
		fmt.Println("Error:", friendly(err))
		return
	}
	printBorrowers(borrowers)
}

func handleHeld(sc *bufio.Scanner, mgr *library.Manager) {
	nationalID, ok := prompt(sc, "Student national id: ")
	if !ok {
		return
	}
	b, err := mgr.Borrowers.FindByNationalID(nationalID)
	if err != nil {
		fmt.Println("Error:", friendly(err))
		return
	}
	held, err := mgr.Borrowers.BooksHeld(b.ID)
	if err != nil {
		fmt.Println("Error:", friendly(err))
		return
	}
	if len(held) == 0 {
		fmt.Printf("%s has no books out\n", b.Name)
		return
	}
	for _, h := range held {
		fmt.Printf("%-40s %-25s issued %s\n", h.Title, h.Author, h.IssueDate)
	}
}
