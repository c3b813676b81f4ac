package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueDecrementsAndGuardsDuplicates(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "T1", 2)
	borrowerID := addBorrower(t, reg, "1-9", "N")

	_, err := loans.Issue(bookID, borrowerID)
	require.NoError(t, err)

	book, err := books.FindByID(bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)
	assert.Equal(t, 2, book.TotalCopies)

	// Second issue to the same pair fails and takes nothing from stock.
	_, err = loans.Issue(bookID, borrowerID)
	assert.ErrorIs(t, err, ErrDuplicateActiveLoan)

	book, err = books.FindByID(bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)

	dup, err := loans.HasDuplicateActiveLoan(bookID, borrowerID)
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestIssueDuplicateOnLastCopy(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "T1", 1)
	borrowerID := addBorrower(t, reg, "12345678", "Ana")

	_, err := loans.Issue(bookID, borrowerID)
	require.NoError(t, err)

	// The borrower holds the only copy; reissuing the pair is a
	// duplicate, not an availability failure.
	_, err = loans.Issue(bookID, borrowerID)
	assert.ErrorIs(t, err, ErrDuplicateActiveLoan)

	book, err := books.FindByID(bookID)
	require.NoError(t, err)
	assert.Equal(t, 0, book.AvailableCopies)
}

func TestLoanRoundTrip(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "9780000000001", "A", 3)
	borrowerID := addBorrower(t, reg, "12345678", "Ana")

	book, err := books.FindByISBN("9780000000001")
	require.NoError(t, err)
	assert.Equal(t, 3, book.TotalCopies)
	assert.Equal(t, 3, book.AvailableCopies)

	loanID, err := loans.Issue(bookID, borrowerID)
	require.NoError(t, err)

	book, err = books.FindByID(bookID)
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableCopies)

	require.NoError(t, loans.Close(loanID))

	book, err = books.FindByID(bookID)
	require.NoError(t, err)
	assert.Equal(t, 3, book.AvailableCopies)

	closed, err := loans.ListAll(borrowerID)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, StatusClosed, closed[0].Status)
	assert.Equal(t, time.Now().Format("2006-01-02"), closed[0].ReturnDate)
	assert.False(t, closed[0].Open())
}

func TestCloseIsTerminal(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "T1", 1)
	borrowerID := addBorrower(t, reg, "12345678", "Ana")

	loanID, err := loans.Issue(bookID, borrowerID)
	require.NoError(t, err)
	require.NoError(t, loans.Close(loanID))

	// Closing again must fail and must not touch stock.
	assert.ErrorIs(t, loans.Close(loanID), ErrLoanClosed)

	book, err := books.FindByID(bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)
	assert.Equal(t, 1, book.TotalCopies)

	assert.ErrorIs(t, loans.Close(999), ErrNotFound)
}

func TestIssueExhaustedStock(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "T1", 1)
	ana := addBorrower(t, reg, "11111111", "Ana")
	beto := addBorrower(t, reg, "22222222", "Beto")

	_, err := loans.Issue(bookID, ana)
	require.NoError(t, err)

	_, err = loans.Issue(bookID, beto)
	assert.ErrorIs(t, err, ErrNoCopiesAvailable)

	// Returning frees the copy for the next borrower.
	loan, err := loans.ActiveLoanFor(bookID)
	require.NoError(t, err)
	require.NoError(t, loans.Close(loan.ID))

	_, err = loans.Issue(bookID, beto)
	require.NoError(t, err)
}

func TestIssueUnknownIDs(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "T1", 1)
	borrowerID := addBorrower(t, reg, "12345678", "Ana")

	_, err := loans.Issue(999, borrowerID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = loans.Issue(bookID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	// Failed issues leave stock untouched.
	book, err := books.FindByID(bookID)
	require.NoError(t, err)
	assert.Equal(t, 1, book.AvailableCopies)
}

func TestActiveLoanFor(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "T1", 2)
	ana := addBorrower(t, reg, "11111111", "Ana")
	beto := addBorrower(t, reg, "22222222", "Beto")

	_, err := loans.ActiveLoanFor(bookID)
	assert.ErrorIs(t, err, ErrNotFound)

	first, err := loans.Issue(bookID, ana)
	require.NoError(t, err)
	_, err = loans.Issue(bookID, beto)
	require.NoError(t, err)

	// Oldest open loan comes back first.
	loan, err := loans.ActiveLoanFor(bookID)
	require.NoError(t, err)
	assert.Equal(t, first, loan.ID)
	assert.Equal(t, ana, loan.BorrowerID)
	assert.True(t, loan.Open())
}

func TestListAllAndCountOpen(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	b1 := addBook(t, books, "111", "T1", 1)
	b2 := addBook(t, books, "222", "T2", 1)
	ana := addBorrower(t, reg, "11111111", "Ana")
	beto := addBorrower(t, reg, "22222222", "Beto")

	l1, err := loans.Issue(b1, ana)
	require.NoError(t, err)
	l2, err := loans.Issue(b2, beto)
	require.NoError(t, err)

	all, err := loans.ListAll(0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	// Same-day issues fall back to newest id first.
	assert.Equal(t, l2, all[0].ID)
	assert.Equal(t, l1, all[1].ID)

	mine, err := loans.ListAll(ana)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, l1, mine[0].ID)

	n, err := loans.CountOpen()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, loans.Close(l1))
	n, err = loans.CountOpen()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListDetailed(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "The Hobbit", 1)
	borrowerID := addBorrower(t, reg, "12345678", "Ana Soto")

	_, err := loans.Issue(bookID, borrowerID)
	require.NoError(t, err)

	details, err := loans.ListDetailed(0)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "The Hobbit", details[0].BookTitle)
	assert.Equal(t, "Ana Soto", details[0].BorrowerName)
	assert.Equal(t, StatusOpen, details[0].Status)
}
