package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndFindBook(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)

	id, err := books.Create("9780140449136", "Odyssey", "Homer", "Penguin", 2003, "Classics", 3)
	require.NoError(t, err)
	assert.NotZero(t, id)

	book, err := books.FindByISBN("9780140449136")
	require.NoError(t, err)
	assert.Equal(t, id, book.ID)
	assert.Equal(t, "Odyssey", book.Title)
	assert.Equal(t, "Homer", book.Author)
	assert.Equal(t, 2003, book.Year)
	assert.Equal(t, 3, book.TotalCopies)
	assert.Equal(t, 3, book.AvailableCopies)
	assert.Equal(t, time.Now().Format("2006-01-02"), book.DateAdded)

	byID, err := books.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, book, byID)
}

func TestCreateBookValidation(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)

	_, err := books.Create("", "", "Homer", "", 0, "", 1)
	assert.True(t, IsValidation(err), "empty title must be rejected")

	_, err = books.Create("", "Odyssey", "   ", "", 0, "", 1)
	assert.True(t, IsValidation(err), "blank author must be rejected")

	_, err = books.Create("", "Odyssey", "Homer", "", 0, "", 0)
	assert.True(t, IsValidation(err), "zero copies must be rejected")
}

func TestDuplicateISBN(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)

	addBook(t, books, "111", "T1", 1)
	_, err := books.Create("111", "T2", "A2", "", 0, "", 1)
	assert.ErrorIs(t, err, ErrDuplicate)

	// Books without ISBN never collide with each other.
	_, err = books.Create("", "NoISBN1", "A", "", 0, "", 1)
	require.NoError(t, err)
	_, err = books.Create("", "NoISBN2", "A", "", 0, "", 1)
	require.NoError(t, err)
}

func TestAddStock(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "T1", 2)
	borrowerID := addBorrower(t, reg, "12345678", "Ana")
	_, err := loans.Issue(bookID, borrowerID)
	require.NoError(t, err)

	// total=2, available=1; topping up by 5 moves both counters.
	require.NoError(t, books.AddStock("111", 5))

	book, err := books.FindByISBN("111")
	require.NoError(t, err)
	assert.Equal(t, 7, book.TotalCopies)
	assert.Equal(t, 6, book.AvailableCopies)

	assert.ErrorIs(t, books.AddStock("nope", 1), ErrNotFound)
	assert.True(t, IsValidation(books.AddStock("111", 0)))
}

func TestFindBorrowable(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	first := addBook(t, books, "111", "The Hobbit", 1)
	second := addBook(t, books, "222", "The Hobbit Annotated", 1)

	// Exact ISBN wins over title matching.
	book, err := books.FindBorrowable("222")
	require.NoError(t, err)
	assert.Equal(t, second, book.ID)

	// Substring match: lowest id wins when several titles match.
	book, err = books.FindBorrowable("Hobbit")
	require.NoError(t, err)
	assert.Equal(t, first, book.ID)

	// Books with no copies left are not borrowable.
	borrowerID := addBorrower(t, reg, "12345678", "Ana")
	_, err = loans.Issue(first, borrowerID)
	require.NoError(t, err)

	book, err = books.FindBorrowable("Hobbit")
	require.NoError(t, err)
	assert.Equal(t, second, book.ID)

	_, err = books.FindBorrowable("no such book")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchBooks(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	_, err := books.Create("111", "Zebra Tales", "Ann Writer", "", 0, "", 1)
	require.NoError(t, err)
	bID, err := books.Create("222", "Aardvark Atlas", "Bo Writer", "", 0, "", 2)
	require.NoError(t, err)

	// Term search spans title, author and ISBN, ordered by title.
	found, err := books.Search("Writer")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Aardvark Atlas", found[0].Title)
	assert.Equal(t, "Zebra Tales", found[1].Title)

	found, err = books.Search("111")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Zebra Tales", found[0].Title)

	// Empty term: only books with copies out.
	found, err = books.Search("")
	require.NoError(t, err)
	assert.Empty(t, found)

	borrowerID := addBorrower(t, reg, "12345678", "Ana")
	_, err = loans.Issue(bID, borrowerID)
	require.NoError(t, err)

	found, err = books.Search("")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Aardvark Atlas", found[0].Title)
	assert.Equal(t, 1, found[0].AvailableCopies)
}

func TestUpdateBookKeepsCounts(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)

	id := addBook(t, books, "111", "Old Title", 4)

	require.NoError(t, books.Update(id, "111", "New Title", "New Author", "Pub", 1999, "Cat"))

	book, err := books.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, "New Title", book.Title)
	assert.Equal(t, "New Author", book.Author)
	assert.Equal(t, 1999, book.Year)
	assert.Equal(t, 4, book.TotalCopies)
	assert.Equal(t, 4, book.AvailableCopies)

	assert.ErrorIs(t, books.Update(999, "x", "T", "A", "", 0, ""), ErrNotFound)
}

func TestDeleteBookGuard(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	bookID := addBook(t, books, "111", "Guarded", 1)
	borrowerID := addBorrower(t, reg, "12345678", "Ana")

	loanID, err := loans.Issue(bookID, borrowerID)
	require.NoError(t, err)

	// Delete is blocked while the loan is open and the row survives.
	assert.ErrorIs(t, books.Delete(bookID), ErrHasActiveLoans)
	_, err = books.FindByID(bookID)
	require.NoError(t, err)

	require.NoError(t, loans.Close(loanID))
	require.NoError(t, books.Delete(bookID))
	_, err = books.FindByID(bookID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, books.Delete(bookID), ErrNotFound)
}

func TestStatistics(t *testing.T) {
	db := newTestDB(t)
	books := NewCatalog(db)
	reg := NewRegistry(db)
	loans := NewLedger(db)

	stats, err := books.Statistics()
	require.NoError(t, err)
	assert.Equal(t, Statistics{}, stats)

	b1 := addBook(t, books, "111", "T1", 3)
	addBook(t, books, "222", "T2", 2)
	borrowerID := addBorrower(t, reg, "12345678", "Ana")
	_, err = loans.Issue(b1, borrowerID)
	require.NoError(t, err)

	stats, err = books.Statistics()
	require.NoError(t, err)
	assert.Equal(t, Statistics{
		Titles:          2,
		TotalCopies:     5,
		AvailableCopies: 4,
		OnLoanCopies:    1,
	}, stats)
}
