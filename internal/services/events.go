package services

import "context"

// Event types published by the services
const (
	EventDatasetUploaded   = "dataset:uploaded"
	EventDatasetDeleted    = "dataset:deleted"
	EventAnalysisCompleted = "analysis:completed"
	EventStandardsLoaded   = "standards:loaded"
)

// EventPublisher receives service events. Publish must not block the caller.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any)
}

// AnalysisSummary is the payload of EventAnalysisCompleted
type AnalysisSummary struct {
	DatasetID     string   `json:"dataset_id"`
	Items         []string `json:"items"`
	Levels        []string `json:"levels"`
	CountMode     string   `json:"count_mode"`
	Records       int      `json:"records"`
	UnknownRegion int      `json:"unknown_region"`
	Rows          int      `json:"rows"`
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
