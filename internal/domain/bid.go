package domain

// Bid status values. Any value may overwrite any other via a status
// update; the permissiveness is intentional so operators can correct
// mistakes (e.g. un-archive a record).
const (
	StatusNew      = "new"
	StatusNotified = "notified"
	StatusArchived = "archived"
)

// ValidStatus reports whether s is one of the defined bid statuses.
func ValidStatus(s string) bool {
	return s == StatusNew || s == StatusNotified || s == StatusArchived
}

// BidRecord is one structured tender opportunity extracted from an
// article. ID is a pure function of (ProjectName, Purchaser), so two
// extractions of the same logical tender collide on write and dedup.
// Status is the only field that changes after creation.
type BidRecord struct {
	// ID is a stable short hash of project name + purchaser
	ID string `json:"id" db:"id"`
	// ProjectName of the tender
	ProjectName string `json:"project_name" db:"project_name"`
	// Budget as written in the source text, including the currency unit
	Budget string `json:"budget" db:"budget"`
	// Purchaser is the procuring entity
	Purchaser string `json:"purchaser" db:"purchaser"`
	// DocTime is the procurement-document availability window
	DocTime string `json:"doc_time" db:"doc_time"`
	// ProjectNumber is the official tender number, when present
	ProjectNumber string `json:"project_number,omitempty" db:"project_number"`
	// ServicePeriod of the contract, when present
	ServicePeriod string `json:"service_period,omitempty" db:"service_period"`
	// Content is the procurement subject description, when present
	Content string `json:"content,omitempty" db:"content"`
	// SourceURL of the article the record was extracted from
	SourceURL string `json:"source_url" db:"source_url"`
	// SourceTitle of the article the record was extracted from
	SourceTitle string `json:"source_title" db:"source_title"`
	// ExtractedTime is when extraction ran, RFC3339 UTC
	ExtractedTime string `json:"extracted_time" db:"extracted_time"`
	// Status is one of new, notified, archived
	Status string `json:"status" db:"status"`
	// UpdatedTime is set on each status change, RFC3339 UTC
	UpdatedTime string `json:"updated_time,omitempty" db:"updated_time"`
}

// Stats holds aggregate counts over the stored collections.
type Stats struct {
	TotalArticles int `json:"total_articles"`
	TotalBids     int `json:"total_bids"`
	NewBids       int `json:"new_bids"`
	NotifiedBids  int `json:"notified_bids"`
	ArchivedBids  int `json:"archived_bids"`
}
