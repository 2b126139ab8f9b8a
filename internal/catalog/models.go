package catalog

import "time"

// Status is the terminal (or provisional) state of one ingested file.
type Status string

const (
	StatusPending       Status = "pending"
	StatusDuplicateHash Status = "duplicate_hash"
	StatusDuplicateISBN Status = "duplicate_isbn"
	StatusProcessed     Status = "processed"
	StatusFailed        Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusDuplicateHash,
	StatusDuplicateISBN,
	StatusProcessed,
	StatusFailed,
}

// Statuses returns every known status in display order.
func Statuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// Record is one persisted file outcome.
type Record struct {
	ID               int64
	FileHash         string
	Filename         string
	FilePath         string
	FileSize         int64
	Status           Status
	ISBN             string
	ISBNSource       string
	HasCover         bool
	ChoiceSource     string
	FinalTitle       string
	FinalAuthor      string
	ErrorMessage     string
	StartedAt        time.Time
	CompletedAt      *time.Time
	ProcessingTimeMS int64
	ISBNJSON         string
	MetadataJSON     string
	CoverJSON        string
	ResponseJSON     string
}

// HealthSummary aggregates record counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processed  int
	Duplicates int
	Failed     int
}

// updateColumns is the allow-list of writable outcome columns. Update
// rejects anything else.
var updateColumns = map[string]struct{}{
	"isbn":               {},
	"isbn_source":        {},
	"has_cover":          {},
	"choice_source":      {},
	"final_title":        {},
	"final_author":       {},
	"status":             {},
	"error_message":      {},
	"completed_at":       {},
	"processing_time_ms": {},
	"isbn_json":          {},
	"metadata_json":      {},
	"cover_json":         {},
	"response_json":      {},
}
