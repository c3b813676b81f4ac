package library

import (
	"database/sql"
	"errors"
)

// Ledger is the loan ledger service. A loan moves through exactly one
// transition, Open to Closed, and Closed is terminal.
//
// Issue and Close each run as a single transaction covering both the
// loan row and the book's available-copies counter, so stock counts and
// loan state cannot disagree after a crash mid-operation.
type Ledger struct {
	db *Database
}

// NewLedger returns a ledger backed by db.
func NewLedger(db *Database) *Ledger { return &Ledger{db: db} }

// Issue opens a loan of bookID to borrowerID dated today and takes one
// copy out of stock. It refuses with ErrDuplicateActiveLoan when the
// pair already has an open loan and with ErrNoCopiesAvailable when
// every copy is out.
func (g *Ledger) Issue(bookID, borrowerID int64) (int64, error) {
	var loanID int64
	err := g.db.WithTx(func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM borrowers WHERE id=?)`, borrowerID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		// The pair guard runs before the stock check: a repeat issue on
		// the pair's own last copy is a duplicate, not an empty shelf.
		if err := tx.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM loans WHERE book_id=? AND borrower_id=? AND status=?)`,
			bookID, borrowerID, StatusOpen).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrDuplicateActiveLoan
		}

		var available int
		err := tx.QueryRow(`SELECT available_copies FROM books WHERE id=?`, bookID).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if available < 1 {
			return ErrNoCopiesAvailable
		}

		if _, err := tx.Exec(
			`UPDATE books SET available_copies = available_copies - 1 WHERE id=?`, bookID); err != nil {
			return err
		}

		res, err := tx.Exec(
			`INSERT INTO loans (book_id, borrower_id, issue_date, status) VALUES (?, ?, ?, ?)`,
			bookID, borrowerID, today(), StatusOpen)
		if err != nil {
			return err
		}
		loanID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return loanID, nil
}

// HasDuplicateActiveLoan reports whether the pair already has an open
// loan.
func (g *Ledger) HasDuplicateActiveLoan(bookID, borrowerID int64) (bool, error) {
	return g.db.exists(
		`SELECT 1 FROM loans WHERE book_id=? AND borrower_id=? AND status=? LIMIT 1`,
		bookID, borrowerID, StatusOpen)
}

// ActiveLoanFor returns an open loan on the book. With issuance gated
// on availability a book never carries more open loans than copies; the
// oldest open loan is returned.
func (g *Ledger) ActiveLoanFor(bookID int64) (*Loan, error) {
	return g.scanLoan(`
        SELECT `+loanColumns+` FROM loans
        WHERE book_id=? AND status=?
        ORDER BY id LIMIT 1`, bookID, StatusOpen)
}

// Close marks the loan returned today and puts the copy back in stock.
// Closing an already-closed loan fails with ErrLoanClosed.
func (g *Ledger) Close(loanID int64) error {
	return g.db.WithTx(func(tx *sql.Tx) error {
		var (
			bookID int64
			status string
		)
		err := tx.QueryRow(`SELECT book_id, status FROM loans WHERE id=?`, loanID).Scan(&bookID, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if status != StatusOpen {
			return ErrLoanClosed
		}

		if _, err := tx.Exec(
			`UPDATE loans SET status=?, actual_return_date=? WHERE id=?`,
			StatusClosed, today(), loanID); err != nil {
			return err
		}
		_, err = tx.Exec(
			`UPDATE books SET available_copies = available_copies + 1 WHERE id=?`, bookID)
		return err
	})
}

const loanColumns = `id, book_id, borrower_id, issue_date,
       COALESCE(expected_return_date,''), COALESCE(actual_return_date,''), status`

func (g *Ledger) scanLoan(query string, args ...any) (*Loan, error) {
	var l Loan
	dest := []any{&l.ID, &l.BookID, &l.BorrowerID, &l.IssueDate,
		&l.ExpectedReturnDate, &l.ReturnDate, &l.Status}
	if err := g.db.queryRow(query, dest, args...); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListAll returns every transaction, newest issue first. A borrowerID
// of 0 means no filter.
func (g *Ledger) ListAll(borrowerID int64) ([]Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans`
	args := []any{}
	if borrowerID != 0 {
		query += ` WHERE borrower_id = ?`
		args = append(args, borrowerID)
	}
	query += ` ORDER BY issue_date DESC, id DESC`

	rows, err := g.db.db.Query(query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	loans := []Loan{}
	for rows.Next() {
		var l Loan
		if err := rows.Scan(&l.ID, &l.BookID, &l.BorrowerID, &l.IssueDate,
			&l.ExpectedReturnDate, &l.ReturnDate, &l.Status); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// ListDetailed is ListAll joined with book titles and borrower names
// for list views.
func (g *Ledger) ListDetailed(borrowerID int64) ([]LoanDetail, error) {
	query := `
        SELECT l.id, l.book_id, l.borrower_id, l.issue_date,
               COALESCE(l.expected_return_date,''), COALESCE(l.actual_return_date,''),
               l.status, b.title, p.name
        FROM loans l
        JOIN books b ON l.book_id = b.id
        JOIN borrowers p ON l.borrower_id = p.id`
	args := []any{}
	if borrowerID != 0 {
		query += ` WHERE l.borrower_id = ?`
		args = append(args, borrowerID)
	}
	query += ` ORDER BY l.issue_date DESC, l.id DESC`

	rows, err := g.db.db.Query(query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	details := []LoanDetail{}
	for rows.Next() {
		var d LoanDetail
		if err := rows.Scan(&d.ID, &d.BookID, &d.BorrowerID, &d.IssueDate,
			&d.ExpectedReturnDate, &d.ReturnDate, &d.Status,
			&d.BookTitle, &d.BorrowerName); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	return details, rows.Err()
}

// CountOpen returns the global number of open loans.
func (g *Ledger) CountOpen() (int, error) {
	var n int
	if err := g.db.queryRow(`SELECT COUNT(*) FROM loans WHERE status=?`, []any{&n}, StatusOpen); err != nil {
		return 0, err
	}
	return n, nil
}
