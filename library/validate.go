package library

import "strings"

const (
	maxTitleLen  = 200
	maxAuthorLen = 150
	maxNameLen   = 150
)

// CleanNationalID strips dots, hyphens and spaces so national ids
// compare equal regardless of how they were typed.
func CleanNationalID(id string) string {
	r := strings.NewReplacer(".", "", "-", "", " ", "")
	return r.Replace(id)
}

// ValidateNationalID accepts any id that is at least seven alphanumeric
// characters once punctuation is stripped. The check digit is not
// verified.
func ValidateNationalID(id string) bool {
	clean := CleanNationalID(id)
	if len(clean) < 7 {
		return false
	}
	for _, c := range clean {
		if !isAlnum(c) {
			return false
		}
	}
	return true
}

// FormatNationalID renders a national id as N.NNN.NNN-V. Ids too short
// to carry a check digit are returned unchanged.
func FormatNationalID(id string) string {
	clean := CleanNationalID(id)
	if len(clean) < 8 {
		return id
	}

	body := clean[:len(clean)-1]
	verifier := clean[len(clean)-1:]

	var groups []string
	for len(body) > 3 {
		groups = append([]string{body[len(body)-3:]}, groups...)
		body = body[:len(body)-3]
	}
	if body != "" {
		groups = append([]string{body}, groups...)
	}
	return strings.Join(groups, ".") + "-" + verifier
}

// ValidateISBN accepts ten- or thirteen-digit ISBNs, ignoring hyphens
// and spaces. Empty ISBNs are allowed at the catalog level; this checks
// only non-empty input.
func ValidateISBN(isbn string) bool {
	clean := strings.NewReplacer("-", "", " ", "").Replace(isbn)
	if len(clean) != 10 && len(clean) != 13 {
		return false
	}
	for _, c := range clean {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isAlnum(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func validateRequired(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if len(value) > max {
		return &ValidationError{Field: field, Reason: "too long"}
	}
	return nil
}
