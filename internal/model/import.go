package model

import "fmt"

// RowError is a row-scoped problem recorded during an import. Row is the
// 1-based line of the source file (the header is line 1).
type RowError struct {
	Row     int    `json:"row" yaml:"row"`
	Message string `json:"message" yaml:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

// ImportStats aggregates the outcome of one import run.
type ImportStats struct {
	Processed     int        `json:"processed" yaml:"processed"`
	Imported      int        `json:"imported" yaml:"imported"`
	CitiesCreated int        `json:"cities_created" yaml:"cities_created"`
	CitiesMatched int        `json:"cities_matched" yaml:"cities_matched"`
	Skipped       int        `json:"skipped" yaml:"skipped"`
	Filtered      int        `json:"filtered" yaml:"filtered"`
	ErrorCount    int        `json:"error_count" yaml:"error_count"`
	Errors        []RowError `json:"errors" yaml:"errors"`

	maxErrors int
}

// NewImportStats returns stats that keep at most maxErrors entries in
// Errors. A maxErrors <= 0 keeps every entry.
func NewImportStats(maxErrors int) *ImportStats {
	return &ImportStats{Errors: []RowError{}, maxErrors: maxErrors}
}

// AddError records a row error. ErrorCount always counts it even when the
// Errors list is already full.
func (s *ImportStats) AddError(row int, format string, args ...any) {
	s.ErrorCount++
	if s.maxErrors > 0 && len(s.Errors) >= s.maxErrors {
		return
	}
	s.Errors = append(s.Errors, RowError{Row: row, Message: fmt.Sprintf(format, args...)})
}
