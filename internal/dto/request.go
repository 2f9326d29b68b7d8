package dto

// StoreEventRequest represents a single event ingestion request
type StoreEventRequest struct {
	Project    string                 `json:"project" binding:"required" example:"ecommerce"`
	Collection string                 `json:"collection" binding:"required" example:"pageview"`
	Properties map[string]interface{} `json:"properties" binding:"required" example:"_user:user_123,url:/checkout"`
}

// StoreEventsBatchRequest represents a batch event ingestion request
type StoreEventsBatchRequest struct {
	Events []StoreEventRequest `json:"events" binding:"required,min=1,max=10000,dive"`
}

// BulkEvent is one event of a bulk submission; the project comes from the
// surrounding request
type BulkEvent struct {
	Collection string                 `json:"collection" binding:"required" example:"pageview"`
	Properties map[string]interface{} `json:"properties" binding:"required"`
}

// StoreEventsBulkRequest represents a backfill-style bulk ingestion request
// for a single project
type StoreEventsBulkRequest struct {
	Project string      `json:"project" binding:"required" example:"ecommerce"`
	Events  []BulkEvent `json:"events" binding:"required,min=1,dive"`
}

// FieldSpec declares one field of a collection schema
type FieldSpec struct {
	Name string `json:"name" binding:"required" example:"url"`
	Type string `json:"type" binding:"required" example:"string"`
}

// CreateCollectionRequest registers a collection schema
type CreateCollectionRequest struct {
	Project    string      `json:"project" binding:"required" example:"ecommerce"`
	Collection string      `json:"collection" binding:"required" example:"pageview"`
	Fields     []FieldSpec `json:"fields" binding:"required,min=1,dive"`
}

// GetMetricsRequest represents a metrics query request
type GetMetricsRequest struct {
	Project    string `form:"project" binding:"required" example:"ecommerce"`
	Collection string `form:"collection" binding:"required" example:"pageview"`
	From       int64  `form:"from" binding:"required" example:"1723475612"`
	To         int64  `form:"to" binding:"required" example:"1723562012"`
	GroupBy    string `form:"group_by" example:"hour"`
}
