package task

import "time"

// SitePublishedTask announces that a new revision of the site was written to disk.
type SitePublishedTask struct {
	Revision    string    `json:"revision"`     // Content hash of catalog + render options
	OutputDir   string    `json:"output_dir"`   // Directory the pages were written to
	Pages       []string  `json:"pages"`        // Page names in render order
	Removed     []string  `json:"removed"`      // Stale pages removed in this publication
	PublishedAt time.Time `json:"published_at"` // Wall clock time of the write
}

func (t *SitePublishedTask) TaskType() string {
	return "SitePublishedTask"
}

func (t *SitePublishedTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
