package consumer

import "sync"

// CheckpointTracker records the highest acknowledged sequence number per
// shard. The receiver advances iterators independently; the tracker is what
// Ack feeds so a restart can resume close to where processing left off.
type CheckpointTracker struct {
	mu        sync.Mutex
	sequences map[string]string
}

// NewCheckpointTracker creates an empty tracker
func NewCheckpointTracker() *CheckpointTracker {
	return &CheckpointTracker{
		sequences: make(map[string]string),
	}
}

// Set records the last acknowledged sequence number for a shard
func (t *CheckpointTracker) Set(shardID, sequenceNumber string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sequences[shardID] = sequenceNumber
}

// Get returns the last acknowledged sequence number for a shard, if any
func (t *CheckpointTracker) Get(shardID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	seq, ok := t.sequences[shardID]
	return seq, ok
}

// Snapshot returns a copy of all tracked checkpoints
func (t *CheckpointTracker) Snapshot() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]string, len(t.sequences))
	for shard, seq := range t.sequences {
		out[shard] = seq
	}
	return out
}
