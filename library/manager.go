package library

import "go.uber.org/zap"

// Manager is a façade bundling the three services over one database,
// keeping CLI code simple.
type Manager struct {
	db *Database

	Books     *Catalog
	Borrowers *Registry
	Loans     *Ledger
}

// NewManager opens (or creates) the SQLite database at dbPath and wires
// the services. A nil logger disables logging.
func NewManager(dbPath string, logger *zap.Logger) (*Manager, error) {
	db, err := NewDatabase(dbPath, logger)
	if err != nil {
		return nil, err
	}
	return &Manager{
		db:        db,
		Books:     NewCatalog(db),
		Borrowers: NewRegistry(db),
		Loans:     NewLedger(db),
	}, nil
}

// Close closes the underlying database.
func (m *Manager) Close() error { return m.db.Close() }

// IssueByTerm resolves a borrowable book by title or ISBN and a
// borrower by national id, then issues the loan. This is the lookup
// sequence the circulation desk runs.
func (m *Manager) IssueByTerm(bookTerm, nationalID string) (*Book, *Borrower, int64, error) {
	book, err := m.Books.FindBorrowable(bookTerm)
	if err != nil {
		return nil, nil, 0, err
	}
	borrower, err := m.Borrowers.FindByNationalID(nationalID)
	if err != nil {
		return nil, nil, 0, err
	}
	loanID, err := m.Loans.Issue(book.ID, borrower.ID)
	if err != nil {
		return nil, nil, 0, err
	}
	return book, borrower, loanID, nil
}

// ReturnBook closes the open loan on bookID, if any.
func (m *Manager) ReturnBook(bookID int64) (*Loan, error) {
	loan, err := m.Loans.ActiveLoanFor(bookID)
	if err != nil {
		return nil, err
	}
	if err := m.Loans.Close(loan.ID); err != nil {
		return nil, err
	}
	return loan, nil
}
