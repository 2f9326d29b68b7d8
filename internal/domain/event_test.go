package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_PartitionKey(t *testing.T) {
	event := &Event{Project: "ecommerce", Collection: "pageview"}

	assert.Equal(t, "ecommerce|pageview", event.PartitionKey())
}

func TestEvent_PartitionKeyGroupsByTenantAndCollection(t *testing.T) {
	a := &Event{Project: "ecommerce", Collection: "pageview"}
	b := &Event{Project: "ecommerce", Collection: "purchase"}
	c := &Event{Project: "gaming", Collection: "pageview"}

	assert.NotEqual(t, a.PartitionKey(), b.PartitionKey())
	assert.NotEqual(t, a.PartitionKey(), c.PartitionKey())
}
