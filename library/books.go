package library

import (
	"time"
)

// Catalog is the book catalog service. It owns every query that touches
// only the books table plus the active-loan guard on deletion.
type Catalog struct {
	db *Database
}

// NewCatalog returns a catalog backed by db.
func NewCatalog(db *Database) *Catalog { return &Catalog{db: db} }

const bookColumns = `id, COALESCE(isbn,''), title, author, COALESCE(publisher,''),
       COALESCE(year,0), COALESCE(category,''), total_copies, available_copies,
       COALESCE(date_added,'')`

func (c *Catalog) scanBook(query string, args ...any) (*Book, error) {
	var b Book
	dest := []any{&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Publisher,
		&b.Year, &b.Category, &b.TotalCopies, &b.AvailableCopies, &b.DateAdded}
	if err := c.db.queryRow(query, dest, args...); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Catalog) scanBooks(query string, args ...any) ([]Book, error) {
	rows, err := c.db.db.Query(query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	books := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Publisher,
			&b.Year, &b.Category, &b.TotalCopies, &b.AvailableCopies, &b.DateAdded); err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// Create adds a new title. Both copy counters start at copies and the
// entry is dated today. A duplicate ISBN yields ErrDuplicate; growing
// an existing title goes through AddStock instead.
func (c *Catalog) Create(isbn, title, author, publisher string, year int, category string, copies int) (int64, error) {
	if err := validateRequired("title", title, maxTitleLen); err != nil {
		return 0, err
	}
	if err := validateRequired("author", author, maxAuthorLen); err != nil {
		return 0, err
	}
	if copies < 1 {
		return 0, &ValidationError{Field: "copies", Reason: "must be at least 1"}
	}

	return c.db.executeInsert(`
        INSERT INTO books (isbn, title, author, publisher, year, category,
                           total_copies, available_copies, date_added)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableStr(isbn), title, author, publisher, nullableInt(year),
		category, copies, copies, today())
}

// AddStock tops up an existing title: both total and available grow by
// delta for the book matching isbn.
func (c *Catalog) AddStock(isbn string, delta int) error {
	if delta < 1 {
		return &ValidationError{Field: "delta", Reason: "must be at least 1"}
	}
	n, err := c.db.executeRows(`
        UPDATE books
        SET total_copies = total_copies + ?, available_copies = available_copies + ?
        WHERE isbn = ?`, delta, delta, isbn)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByISBN returns the book with the given ISBN.
func (c *Catalog) FindByISBN(isbn string) (*Book, error) {
	return c.scanBook(`SELECT `+bookColumns+` FROM books WHERE isbn = ?`, isbn)
}

// FindByID returns the book with the given id.
func (c *Catalog) FindByID(id int64) (*Book, error) {
	return c.scanBook(`SELECT `+bookColumns+` FROM books WHERE id = ?`, id)
}

// FindBorrowable locates a book to issue: exact ISBN match or title
// substring, restricted to books with at least one available copy. When
// several titles match the lowest id wins, keeping the result
// deterministic.
func (c *Catalog) FindBorrowable(term string) (*Book, error) {
	return c.scanBook(`
        SELECT `+bookColumns+` FROM books
        WHERE (isbn = ? OR title LIKE ?) AND available_copies > 0
        ORDER BY id LIMIT 1`, term, "%"+term+"%")
}

// Search lists books by substring across title, author and ISBN,
// ordered by title. An empty term lists only books with at least one
// copy out on loan.
func (c *Catalog) Search(term string) ([]Book, error) {
	if term != "" {
		like := "%" + term + "%"
		return c.scanBooks(`
            SELECT `+bookColumns+` FROM books
            WHERE title LIKE ? OR author LIKE ? OR isbn LIKE ?
            ORDER BY title`, like, like, like)
	}
	return c.scanBooks(`
        SELECT ` + bookColumns + ` FROM books
        WHERE available_copies < total_copies
        ORDER BY title`)
}

// All lists the whole catalog ordered by title.
func (c *Catalog) All() ([]Book, error) {
	return c.scanBooks(`SELECT ` + bookColumns + ` FROM books ORDER BY title`)
}

// Update edits a title's descriptive fields. Copy counts are never
// touched here; they move only through AddStock and the loan ledger.
func (c *Catalog) Update(id int64, isbn, title, author, publisher string, year int, category string) error {
	if err := validateRequired("title", title, maxTitleLen); err != nil {
		return err
	}
	if err := validateRequired("author", author, maxAuthorLen); err != nil {
		return err
	}

	n, err := c.db.executeRows(`
        UPDATE books
        SET isbn=?, title=?, author=?, publisher=?, year=?, category=?
        WHERE id=?`,
		nullableStr(isbn), title, author, publisher, nullableInt(year), category, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a title. Blocked with ErrHasActiveLoans while any loan
// on it is open; closed historical loans cascade away with the row.
func (c *Catalog) Delete(id int64) error {
	active, err := c.HasActiveLoan(id)
	if err != nil {
		return err
	}
	if active {
		return ErrHasActiveLoans
	}

	n, err := c.db.executeRows(`DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// HasActiveLoan reports whether any open loan references the book.
func (c *Catalog) HasActiveLoan(id int64) (bool, error) {
	return c.db.exists(`SELECT 1 FROM loans WHERE book_id=? AND status=? LIMIT 1`, id, StatusOpen)
}

// Statistics aggregates the catalog counters.
func (c *Catalog) Statistics() (Statistics, error) {
	var s Statistics
	err := c.db.queryRow(`
        SELECT COUNT(*), COALESCE(SUM(total_copies),0), COALESCE(SUM(available_copies),0)
        FROM books`,
		[]any{&s.Titles, &s.TotalCopies, &s.AvailableCopies})
	if err != nil {
		return Statistics{}, err
	}
	s.OnLoanCopies = s.TotalCopies - s.AvailableCopies
	return s, nil
}

func today() string { return time.Now().Format("2006-01-02") }

// nullableStr stores empty strings as NULL so the unique ISBN index
// only applies when an ISBN is present.
func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
