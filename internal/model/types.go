/**
 * Shared data structures for the conversion pipeline
 *
 * Pages, tokens and grids are owned by the request that produced them and
 * are not mutated after creation.
 */

package model

import (
	"time"
)

// Mode selects what a conversion produces
type Mode string

const (
	ModeText  Mode = "TEXT"
	ModeTable Mode = "TABLE"
)

// JobStatus is the outcome of one extraction job
type JobStatus string

const (
	StatusSuccess JobStatus = "SUCCESS"
	StatusPartial JobStatus = "PARTIAL"
	StatusFailed  JobStatus = "FAILED"
	// StatusPending marks pages dropped by the global timeout before they ran
	StatusPending JobStatus = "PENDING"
)

// Metadata describes the source document
type Metadata struct {
	FileName     string `json:"file_name,omitempty"`
	FileSize     int64  `json:"file_size"`
	PageCount    int    `json:"page_count"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creation_date,omitempty"`
	ModDate      string `json:"mod_date,omitempty"`
}

// Document is a validated PDF
type Document struct {
	ID        string // hex sha256 of the content
	Data      []byte
	PageCount int
	MimeType  string
	Size      int64
	Metadata  Metadata
}

// Page is one rasterized page. Err is set when the page could not be rendered.
type Page struct {
	Number int
	Image  []byte // PNG encoded
	Width  int
	Height int
	Err    error
}

// Token is a recognized text fragment
type Token struct {
	Text        string      `json:"text"`
	Confidence  float64     `json:"confidence"` // 0-100
	BoundingBox BoundingBox `json:"bbox"`
	Rank        int         `json:"rank"` // reading-order position within the page
	Line        int         `json:"line"`
}

// ExtractionJob is one unit of work for the pool
type ExtractionJob struct {
	Page      *Page
	Mode      Mode
	Language  string
	Threshold int
}

// JobResult is produced exactly once per job
type JobResult struct {
	Page    int
	Status  JobStatus
	Text    string
	Tokens  []Token
	Tables  []TableGrid
	Dropped int // tokens or cells removed by the confidence filter
	Err     error
}

// Segment is the text output of one page
type Segment struct {
	Page   int       `json:"page"`
	Text   string    `json:"text"`
	Status JobStatus `json:"status"`
}

// PageError records why one page was skipped
type PageError struct {
	Page   int    `json:"page"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Stats aggregates a conversion run
type Stats struct {
	PagesAttempted int           `json:"pages_attempted"`
	PagesSucceeded int           `json:"pages_succeeded"`
	PagesFailed    int           `json:"pages_failed"`
	PagesPending   int           `json:"pages_pending"`
	MeanConfidence float64       `json:"mean_confidence"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Artifact is the final conversion output
type Artifact struct {
	RequestID    string      `json:"request_id"`
	DocumentID   string      `json:"document_id"`
	Mode         Mode        `json:"mode"`
	Text         string      `json:"text,omitempty"`
	Segments     []Segment   `json:"segments,omitempty"`
	Tables       []TableGrid `json:"tables,omitempty"`
	Errors       []PageError `json:"errors"`
	Stats        Stats       `json:"stats"`
	Metadata     Metadata    `json:"metadata"`
	TimedOut     bool        `json:"timed_out"`
	PendingPages []int       `json:"pending_pages,omitempty"`
}

// Complete reports whether every selected page was processed
func (a *Artifact) Complete() bool {
	return !a.TimedOut && len(a.PendingPages) == 0
}
