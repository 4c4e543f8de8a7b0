package domain

import "fmt"

// FormatSequence renders a document number such as REF/2026/00042.
func FormatSequence(code string, year int, n int64) string {
	return fmt.Sprintf("%s/%d/%05d", code, year, n)
}

// SequenceKey scopes a counter per document code and year.
func SequenceKey(code string, year int) string {
	return fmt.Sprintf("%s/%d", code, year)
}
