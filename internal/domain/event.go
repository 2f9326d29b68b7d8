package domain

import "github.com/streamroute/event-analytics-platform/internal/schema"

// Event is an immutable unit of ingested data. Project identifies the
// tenant, Collection the event type within the tenant, and Properties the
// schema-typed field values. The ingestion pipeline only ever reads an
// Event; it never mutates one.
type Event struct {
	Project    string
	Collection string
	Properties *schema.Record
}

// PartitionKey is the routing key used by the streaming transport.
func (e *Event) PartitionKey() string {
	return e.Project + "|" + e.Collection
}
