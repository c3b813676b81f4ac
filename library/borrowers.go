package library

// Registry is the borrower registry service. National ids are compared
// with punctuation stripped on both sides, so "12.345.678-9" and
// "123456789" address the same student.
type Registry struct {
	db *Database
}

// NewRegistry returns a registry backed by db.
func NewRegistry(db *Database) *Registry { return &Registry{db: db} }

// strippedID is the SQL rendition of CleanNationalID applied to the
// stored column.
const strippedID = `REPLACE(REPLACE(national_id, '.', ''), '-', '')`

// Create registers a student. A national id already on file yields
// ErrDuplicate. Format checks on the id (ValidateNationalID) are left
// to the caller; the registry itself only requires the fields present.
func (r *Registry) Create(nationalID, name, cohort string) (int64, error) {
	if CleanNationalID(nationalID) == "" {
		return 0, &ValidationError{Field: "national id", Reason: "must not be empty"}
	}
	if err := validateRequired("name", name, maxNameLen); err != nil {
		return 0, err
	}

	return r.db.executeInsert(
		`INSERT INTO borrowers (national_id, name, cohort) VALUES (?, ?, ?)`,
		nationalID, name, cohort)
}

// FindByNationalID looks a borrower up by national id, tolerant of dots
// and hyphens in either the stored value or the query.
func (r *Registry) FindByNationalID(nationalID string) (*Borrower, error) {
	var b Borrower
	err := r.db.queryRow(
		`SELECT id, national_id, name, COALESCE(cohort,'') FROM borrowers
         WHERE `+strippedID+` = ?`,
		[]any{&b.ID, &b.NationalID, &b.Name, &b.Cohort},
		CleanNationalID(nationalID))
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindByID returns the borrower with the given id.
func (r *Registry) FindByID(id int64) (*Borrower, error) {
	var b Borrower
	err := r.db.queryRow(
		`SELECT id, national_id, name, COALESCE(cohort,'') FROM borrowers WHERE id = ?`,
		[]any{&b.ID, &b.NationalID, &b.Name, &b.Cohort}, id)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

const openLoanCount = `(SELECT COUNT(*) FROM loans l
         WHERE l.borrower_id = b.id AND l.status = 'Open')`

// Search lists borrowers by stripped national id, name or cohort
// substring, ordered by name, each row carrying its open-loan count. An
// empty term lists only borrowers currently holding at least one book.
func (r *Registry) Search(term string) ([]Borrower, error) {
	var (
		query string
		args  []any
	)
	if term != "" {
		like := "%" + term + "%"
		query = `
            SELECT b.id, b.national_id, b.name, COALESCE(b.cohort,''), ` + openLoanCount + `
            FROM borrowers b
            WHERE ` + strippedID + ` LIKE ? OR b.name LIKE ? OR b.cohort LIKE ?
            ORDER BY b.name`
		args = []any{"%" + CleanNationalID(term) + "%", like, like}
	} else {
		query = `
            SELECT b.id, b.national_id, b.name, COALESCE(b.cohort,''), ` + openLoanCount + `
            FROM borrowers b
            WHERE ` + openLoanCount + ` > 0
            ORDER BY b.name`
	}

	rows, err := r.db.db.Query(query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	borrowers := []Borrower{}
	for rows.Next() {
		var b Borrower
		if err := rows.Scan(&b.ID, &b.NationalID, &b.Name, &b.Cohort, &b.OpenLoans); err != nil {
			return nil, err
		}
		borrowers = append(borrowers, b)
	}
	return borrowers, rows.Err()
}

// All lists every registered borrower ordered by name.
func (r *Registry) All() ([]Borrower, error) {
	rows, err := r.db.db.Query(
		`SELECT id, national_id, name, COALESCE(cohort,'') FROM borrowers ORDER BY name`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	borrowers := []Borrower{}
	for rows.Next() {
		var b Borrower
		if err := rows.Scan(&b.ID, &b.NationalID, &b.Name, &b.Cohort); err != nil {
			return nil, err
		}
		borrowers = append(borrowers, b)
	}
	return borrowers, rows.Err()
}

// Update edits a borrower's record.
func (r *Registry) Update(id int64, nationalID, name, cohort string) error {
	if CleanNationalID(nationalID) == "" {
		return &ValidationError{Field: "national id", Reason: "must not be empty"}
	}
	if err := validateRequired("name", name, maxNameLen); err != nil {
		return err
	}

	n, err := r.db.executeRows(
		`UPDATE borrowers SET national_id=?, name=?, cohort=? WHERE id=?`,
		nationalID, name, cohort, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a borrower. Blocked with ErrHasActiveLoans while the
// borrower still holds a book; closed historical loans cascade away.
func (r *Registry) Delete(id int64) error {
	active, err := r.HasActiveLoan(id)
	if err != nil {
		return err
	}
	if active {
		return ErrHasActiveLoans
	}

	n, err := r.db.executeRows(`DELETE FROM borrowers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// HasActiveLoan reports whether the borrower holds any open loan.
func (r *Registry) HasActiveLoan(id int64) (bool, error) {
	return r.db.exists(`SELECT 1 FROM loans WHERE borrower_id=? AND status=? LIMIT 1`, id, StatusOpen)
}

// BooksHeld lists the books a borrower currently has out, oldest loan
// first.
func (r *Registry) BooksHeld(id int64) ([]HeldBook, error) {
	rows, err := r.db.db.Query(`
        SELECT COALESCE(b.isbn,''), b.title, b.author, l.issue_date
        FROM loans l
        JOIN books b ON l.book_id = b.id
        WHERE l.borrower_id = ? AND l.status = ?
        ORDER BY l.issue_date`, id, StatusOpen)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	held := []HeldBook{}
	for rows.Next() {
		var h HeldBook
		if err := rows.Scan(&h.ISBN, &h.Title, &h.Author, &h.IssueDate); err != nil {
			return nil, err
		}
		held = append(held, h)
	}
	return held, rows.Err()
}

// Count returns the number of registered borrowers.
func (r *Registry) Count() (int, error) {
	var n int
	if err := r.db.queryRow(`SELECT COUNT(*) FROM borrowers`, []any{&n}); err != nil {
		return 0, err
	}
	return n, nil
}
