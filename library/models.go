package library

// Loan status values stored in the loans.status column.
const (
	StatusOpen   = "Open"
	StatusClosed = "Closed"
)

// Book is a catalog entry for a title the library owns one or more
// physical copies of.
type Book struct {
	ID              int64  `json:"id"`
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Publisher       string `json:"publisher"`
	Year            int    `json:"year"` // 0 when unknown
	Category        string `json:"category"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
	DateAdded       string `json:"date_added"` // YYYY-MM-DD
}

// Borrower is a student eligible to hold loans. OpenLoans is a computed
// count populated by Registry search results, zero elsewhere.
type Borrower struct {
	ID         int64  `json:"id"`
	NationalID string `json:"national_id"`
	Name       string `json:"name"`
	Cohort     string `json:"cohort"`
	OpenLoans  int    `json:"open_loans,omitempty"`
}

// Loan binds one book to one borrower. ReturnDate is empty while the
// loan is open.
type Loan struct {
	ID                 int64  `json:"id"`
	BookID             int64  `json:"book_id"`
	BorrowerID         int64  `json:"borrower_id"`
	IssueDate          string `json:"issue_date"`
	ExpectedReturnDate string `json:"expected_return_date,omitempty"`
	ReturnDate         string `json:"return_date,omitempty"`
	Status             string `json:"status"`
}

// Open reports whether the loan is still outstanding.
func (l *Loan) Open() bool { return l.Status == StatusOpen }

// HeldBook is one row of a borrower's currently held books.
type HeldBook struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	IssueDate string `json:"issue_date"`
}

// LoanDetail is a Loan joined with display names for list views.
type LoanDetail struct {
	Loan
	BookTitle    string `json:"book_title"`
	BorrowerName string `json:"borrower_name"`
}

// Statistics summarises the catalog for dashboard views.
type Statistics struct {
	Titles          int `json:"titles"`
	TotalCopies     int `json:"total_copies"`
	AvailableCopies int `json:"available_copies"`
	OnLoanCopies    int `json:"on_loan_copies"`
}
