package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"project is required"`
}

// StoreEventResponse represents a successful event ingestion response
type StoreEventResponse struct {
	Status string `json:"status" example:"accepted"`
}

// StoreEventsBatchResponse represents a batch ingestion response. Failed
// holds the positions of events that must be resubmitted
type StoreEventsBatchResponse struct {
	Accepted int    `json:"accepted" example:"498"`
	Failed   []int  `json:"failed,omitempty" example:"3,17"`
	Status   string `json:"status" example:"accepted"`
}

// StoreEventsBulkResponse represents a bulk ingestion response
type StoreEventsBulkResponse struct {
	Accepted int    `json:"accepted" example:"5000"`
	Status   string `json:"status" example:"accepted"`
}

// CreateCollectionResponse represents a collection registration response
type CreateCollectionResponse struct {
	Status string `json:"status" example:"created"`
}

// MetricsGroupData represents aggregated metrics for a specific group
type MetricsGroupData struct {
	GroupValue string `json:"group_value" example:"2024-08-12 14:00:00"`
	TotalCount uint64 `json:"total_count" example:"1500"`
}

// GetMetricsResponse represents the metrics query response
type GetMetricsResponse struct {
	Project     string             `json:"project" example:"ecommerce"`
	Collection  string             `json:"collection" example:"pageview"`
	From        int64              `json:"from" example:"1723475612"`
	To          int64              `json:"to" example:"1723562012"`
	TotalCount  uint64             `json:"total_count" example:"5000"`
	UniqueCount uint64             `json:"unique_count" example:"2500"`
	GroupBy     string             `json:"group_by,omitempty" example:"hour"`
	Groups      []MetricsGroupData `json:"groups,omitempty"`
}
