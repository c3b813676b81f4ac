package library

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCirculationFlow(t *testing.T) {
	mgr, err := NewManager(filepath.Join(t.TempDir(), "lib.db"), nil)
	require.NoError(t, err)
	defer mgr.Close()

	_, err = mgr.Books.Create("9780261102217", "The Hobbit", "J.R.R. Tolkien", "", 1937, "Fantasy", 1)
	require.NoError(t, err)
	_, err = mgr.Borrowers.Create("12.345.678-9", "Ana Soto", "3B")
	require.NoError(t, err)

	// Issue resolves the book by title term and the student by any
	// punctuation variant of the id.
	book, borrower, loanID, err := mgr.IssueByTerm("Hobbit", "123456789")
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", book.Title)
	assert.Equal(t, "Ana Soto", borrower.Name)
	assert.NotZero(t, loanID)

	// The single copy is now out: the title is no longer borrowable.
	_, _, _, err = mgr.IssueByTerm("Hobbit", "123456789")
	assert.ErrorIs(t, err, ErrNotFound)

	loan, err := mgr.ReturnBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, loanID, loan.ID)

	refreshed, err := mgr.Books.FindByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, refreshed.AvailableCopies)

	// Nothing left to return.
	_, err = mgr.ReturnBook(book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
