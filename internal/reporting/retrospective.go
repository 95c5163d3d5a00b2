// Package reporting keeps a journal of gateway operations and summarizes it
// into retrospective reports.
package reporting

import (
	"sort"
	"sync"
	"time"
)

// Entry statuses.
const (
	StatusSuccess     = "SUCCESS"
	StatusFailure     = "FAILURE"
	StatusReauthorize = "REAUTHORIZE"
)

// LogEntry represents a single gateway event.
type LogEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Operation    string    `json:"operation"` // e.g. "authorize", "capture", "credit"
	Reference    string    `json:"reference"` // processor id the operation was called with
	Status       string    `json:"status"`    // SUCCESS, FAILURE or REAUTHORIZE
	AmountCents  int64     `json:"amount_cents"`
	Currency     string    `json:"currency,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Recorder receives gateway events.
type Recorder interface {
	Record(entry LogEntry)
}

// Journal is an in-memory Recorder bounded to the most recent entries.
type Journal struct {
	mu      sync.Mutex
	entries []LogEntry
	limit   int
}

const defaultJournalLimit = 10000

// NewJournal creates a Journal keeping at most limit entries. A non-positive
// limit uses the default.
func NewJournal(limit int) *Journal {
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	return &Journal{limit: limit}
}

func (j *Journal) Record(entry LogEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
	if over := len(j.entries) - j.limit; over > 0 {
		j.entries = append([]LogEntry(nil), j.entries[over:]...)
	}
}

// Entries returns a copy of the journal in recording order.
func (j *Journal) Entries() []LogEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]LogEntry(nil), j.entries...)
}

// Since returns the entries recorded at or after t.
func (j *Journal) Since(t time.Time) []LogEntry {
	all := j.Entries()
	out := all[:0]
	for _, e := range all {
		if !e.Timestamp.Before(t) {
			out = append(out, e)
		}
	}
	return out
}

// RetrospectiveReport summarizes gateway activity over a set of log entries.
type RetrospectiveReport struct {
	TotalOperations      int              `json:"total_operations"`
	SuccessfulOperations int              `json:"successful_operations"`
	FailedOperations     int              `json:"failed_operations"`
	Reauthorizations     int              `json:"reauthorizations"`
	TotalAmountProcessed int64            `json:"total_amount_processed"` // successful operations only
	AmountByCurrency     map[string]int64 `json:"amount_by_currency"`
	ErrorBreakdown       map[string]int   `json:"error_breakdown"` // failures by error code, or by message when no code
	OperationUsage       map[string]int   `json:"operation_usage"`
	DateFrom             time.Time        `json:"date_from"`
	DateTo               time.Time        `json:"date_to"`
	ProcessingDuration   time.Duration    `json:"processing_duration"`
}

// RetrospectiveReporter generates retrospective reports from log entries.
type RetrospectiveReporter struct{}

func NewRetrospectiveReporter() *RetrospectiveReporter {
	return &RetrospectiveReporter{}
}

// GenerateRetrospective analyzes logs and produces a RetrospectiveReport.
// Re-authorizations are counted separately and are not operations of their own.
func (rr *RetrospectiveReporter) GenerateRetrospective(logs []LogEntry) (*RetrospectiveReport, error) {
	report := &RetrospectiveReport{
		AmountByCurrency: make(map[string]int64),
		ErrorBreakdown:   make(map[string]int),
		OperationUsage:   make(map[string]int),
	}
	if len(logs) == 0 {
		return report, nil
	}

	sorted := append([]LogEntry(nil), logs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })
	report.DateFrom = sorted[0].Timestamp
	report.DateTo = sorted[len(sorted)-1].Timestamp
	report.ProcessingDuration = report.DateTo.Sub(report.DateFrom)

	for _, entry := range sorted {
		if entry.Status == StatusReauthorize {
			report.Reauthorizations++
			continue
		}

		report.TotalOperations++
		if entry.Operation != "" {
			report.OperationUsage[entry.Operation]++
		}

		switch entry.Status {
		case StatusSuccess:
			report.SuccessfulOperations++
			report.TotalAmountProcessed += entry.AmountCents
			if entry.Currency != "" {
				report.AmountByCurrency[entry.Currency] += entry.AmountCents
			}
		case StatusFailure:
			report.FailedOperations++
			key := entry.ErrorCode
			if key == "" {
				key = entry.ErrorMessage
			}
			if key != "" {
				report.ErrorBreakdown[key]++
			}
		}
	}
	return report, nil
}
