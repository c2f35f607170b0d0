package database

// Article represents one ingested document.
type Article struct {
	ID          int64
	Title       string
	URL         string
	Text        *string
	Source      *string
	PublishedAt *string
	Processed   bool
	ProcessedAt *string
	Error       *string
	CreatedAt   *string
}

// BodyText returns the article text, defaulting to empty for degraded rows.
func (a *Article) BodyText() string {
	if a.Text == nil {
		return ""
	}
	return *a.Text
}

// Project represents a tracked civic initiative.
type Project struct {
	ID                 int64
	Name               string
	Description        *string
	URL                *string
	Location           *string
	ProjectType        *string
	PromisedCompletion *string
	Budget             *string
	Official           *string
	Status             *string
	ConfidenceScore    float64
	CreatedAt          *string
}

// ProjectUpdate is one timestamped observation of a project's status.
type ProjectUpdate struct {
	ID         int64
	ProjectID  int64
	UpdateText *string
	Notes      *string
	UpdateDate *string
	Status     *string
	SourceURL  *string
	SourceType *string
	CreatedAt  *string
}

// ScraperRun is an append-only audit record of one scraper invocation.
type ScraperRun struct {
	ID           int64
	ScraperName  string
	RunTimestamp *string
	SuccessCount int
	ErrorCount   int
}

// Stats contains aggregate registry statistics.
type Stats struct {
	TotalArticles       int
	ProcessedArticles   int
	UnprocessedArticles int
	TotalProjects       int
	ProjectsByStatus    map[string]int
}

// ProjectView is the read model exposed to consumers. FirstSeen and
// LastUpdated are computed from the project's update history, not stored.
type ProjectView struct {
	ID              int64   `json:"id"`
	ProjectName     string  `json:"project_name"`
	Description     *string `json:"description"`
	Location        *string `json:"location"`
	ProjectType     *string `json:"project_type"`
	Status          *string `json:"status"`
	Official        *string `json:"official"`
	Budget          *string `json:"budget"`
	PromisedDate    *string `json:"promised_date"`
	FirstSeen       string  `json:"first_seen"`
	LastUpdated     string  `json:"last_updated"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// ProjectFilters narrows GetAllProjects results. Empty fields match all.
type ProjectFilters struct {
	ProjectType string
	Status      string
}
