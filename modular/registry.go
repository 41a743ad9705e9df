package modular

import (
	"fmt"
	"iter"

	"github.com/gonzalop/mqtiny"
)

// MaxTopicLen is the longest filter a TopicRegistry accepts.
const MaxTopicLen = 128

// TopicRegistry is the TopicCollector used by the Runtime. It holds at most
// a fixed number of distinct filters in the order they were added.
type TopicRegistry struct {
	topics []string
}

// NewTopicRegistry returns a registry for at most capacity filters.
// It panics if capacity is not positive.
func NewTopicRegistry(capacity int) *TopicRegistry {
	if capacity <= 0 {
		panic(fmt.Sprintf("modular: topic registry capacity must be positive, got %d", capacity))
	}
	return &TopicRegistry{topics: make([]string, 0, capacity)}
}

// Add records filter. It returns false if the filter is invalid, longer
// than MaxTopicLen, or the registry is full. Adding a filter twice is
// accepted and keeps a single entry.
func (r *TopicRegistry) Add(filter string) bool {
	if len(filter) > MaxTopicLen || mqtiny.ValidateTopicFilter(filter) != nil {
		return false
	}
	for _, t := range r.topics {
		if t == filter {
			return true
		}
	}
	if len(r.topics) == cap(r.topics) {
		return false
	}
	r.topics = append(r.topics, filter)
	return true
}

// All iterates over the filters in insertion order.
func (r *TopicRegistry) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, t := range r.topics {
			if !yield(t) {
				return
			}
		}
	}
}

// Len returns the number of filters.
func (r *TopicRegistry) Len() int { return len(r.topics) }

// Cap returns the fixed capacity.
func (r *TopicRegistry) Cap() int { return cap(r.topics) }

// Clear removes every filter.
func (r *TopicRegistry) Clear() {
	clear(r.topics)
	r.topics = r.topics[:0]
}
