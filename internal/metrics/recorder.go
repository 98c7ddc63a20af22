// Package metrics records catalog mutation, asset normalization and site publication
// outcomes. The Recorder interface keeps the core independent of the metrics backend.
package metrics

import "time"

// Result labels shared by counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultNoop    = "noop"
)

// Asset normalization outcomes.
const (
	AssetSkipped = "skipped"
	AssetFetched = "fetched"
	AssetCopied  = "copied"
	AssetFailed  = "failed"
)

// Recorder defines observability hooks. All implementations must be safe for
// concurrent use.
type Recorder interface {
	IncMutation(op string, result string)
	IncAssetOutcome(kind string, outcome string)
	ObservePublishDuration(d time.Duration)
	IncPublishOutcome(result string)
	SetCatalogSize(categories, subcategories, items int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncMutation(string, string)           {}
func (NoopRecorder) IncAssetOutcome(string, string)       {}
func (NoopRecorder) ObservePublishDuration(time.Duration) {}
func (NoopRecorder) IncPublishOutcome(string)             {}
func (NoopRecorder) SetCatalogSize(int, int, int)         {}
