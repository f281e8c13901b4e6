package dataset

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	taxIDStripRE = regexp.MustCompile(`[./-]`)
	digitsRE     = regexp.MustCompile(`^[0-9]+$`)
	tickerRE     = regexp.MustCompile(`^[A-Z]{4}(3|4|5|6|11)$`)
)

// missing markers the CVM files use for absent values.
func isMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NaN", "nan", "NaT", "N/A":
		return true
	}
	return false
}

// cleanTaxID strips CNPJ punctuation and left-pads with zeros to 14 digits.
// Returns false for values that are not a CNPJ after cleanup.
func cleanTaxID(s string) (string, bool) {
	s = taxIDStripRE.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" || len(s) > 14 || !digitsRE.MatchString(s) {
		return "", false
	}
	if len(s) < 14 {
		s = strings.Repeat("0", 14-len(s)) + s
	}
	return s, true
}

// validTicker reports whether s is a B3 trading symbol: four letters plus a
// share-class suffix (3, 4, 5, 6 or 11).
func validTicker(s string) bool {
	return tickerRE.MatchString(s)
}

// parseDateISO parses YYYY-MM-DD, returning nil for missing or invalid values.
func parseDateISO(s string) *time.Time {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// parseDecimalComma parses a decimal that may use "," as the decimal
// separator and "." as a thousands separator, returning nil for missing or
// unparseable values.
func parseDecimalComma(s string) *float64 {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseIntOr parses an integer, returning def for missing or invalid values.
func parseIntOr(s string, def int) int {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// normalizeStr trims and maps missing markers to nil.
func normalizeStr(s string) *string {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return nil
	}
	return &s
}

// mapColumns builds a case-insensitive column name to index map.
func mapColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

// getCol gets a column value by name from a CSV record, returning empty string if not found.
func getCol(record []string, colIdx map[string]int, name string) string {
	idx, ok := colIdx[strings.ToLower(name)]
	if !ok || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// firstCol returns the first non-missing value among the named columns.
// Used for columns renamed between file vintages.
func firstCol(record []string, colIdx map[string]int, names ...string) string {
	for _, name := range names {
		v := strings.TrimSpace(getCol(record, colIdx, name))
		if !isMissing(v) {
			return v
		}
	}
	return ""
}
