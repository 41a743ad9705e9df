package mqtiny

import (
	"fmt"
	"iter"
)

// SubscriptionStatus tracks what the server said about a subscription.
type SubscriptionStatus uint8

const (
	// SubscriptionPending means no SUBACK has been received for the entry yet.
	SubscriptionPending SubscriptionStatus = iota
	// SubscriptionGranted means the server accepted the filter.
	SubscriptionGranted
	// SubscriptionRejected means the server answered with a failure return code.
	SubscriptionRejected
)

func (s SubscriptionStatus) String() string {
	switch s {
	case SubscriptionPending:
		return "pending"
	case SubscriptionGranted:
		return "granted"
	case SubscriptionRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Subscription is one entry of the subscription table.
type Subscription struct {
	Filter     string
	QoS        QoS
	Status     SubscriptionStatus
	GrantedQoS QoS // valid when Status is SubscriptionGranted

	// packet id of the SUBSCRIBE that carried this entry, 0 if not sent yet
	pendingID uint16
}

// SubscriptionTable is a fixed-capacity, ordered set of topic filters keyed
// by filter. It never grows beyond the capacity given to NewSubscriptionTable.
type SubscriptionTable struct {
	entries []Subscription
	maxLen  int
}

// NewSubscriptionTable returns an empty table that holds at most capacity
// filters. It panics if capacity is not positive.
func NewSubscriptionTable(capacity int) *SubscriptionTable {
	if capacity <= 0 {
		panic(fmt.Sprintf("mqtiny: subscription capacity must be positive, got %d", capacity))
	}
	return &SubscriptionTable{
		entries: make([]Subscription, 0, capacity),
		maxLen:  DefaultMaxTopicLength,
	}
}

// Add inserts filter with the requested QoS. Re-adding a known filter
// updates its QoS in place and marks it pending again. When the table is
// full, Add returns ErrCapacityExceeded and the table is left unchanged.
func (t *SubscriptionTable) Add(filter string, qos QoS) error {
	if !qos.Valid() {
		return fmt.Errorf("invalid QoS %d", qos)
	}
	if err := validateTopicFilter(filter, t.maxLen); err != nil {
		return err
	}

	if i := t.index(filter); i >= 0 {
		t.entries[i].QoS = qos
		t.entries[i].Status = SubscriptionPending
		t.entries[i].pendingID = 0
		return nil
	}

	if len(t.entries) == cap(t.entries) {
		return fmt.Errorf("%w: subscription table holds %d filters", ErrCapacityExceeded, cap(t.entries))
	}
	t.entries = append(t.entries, Subscription{Filter: filter, QoS: qos})
	return nil
}

// Remove deletes filter from the table, keeping the order of the others.
// It reports whether the filter was present.
func (t *SubscriptionTable) Remove(filter string) bool {
	i := t.index(filter)
	if i < 0 {
		return false
	}
	copy(t.entries[i:], t.entries[i+1:])
	t.entries[len(t.entries)-1] = Subscription{}
	t.entries = t.entries[:len(t.entries)-1]
	return true
}

// Lookup returns the entry for filter.
func (t *SubscriptionTable) Lookup(filter string) (Subscription, bool) {
	if i := t.index(filter); i >= 0 {
		return t.entries[i], true
	}
	return Subscription{}, false
}

// Match returns the first entry, in insertion order, whose filter matches topic.
func (t *SubscriptionTable) Match(topic string) (Subscription, bool) {
	for _, e := range t.entries {
		if MatchTopic(e.Filter, topic) {
			return e, true
		}
	}
	return Subscription{}, false
}

// All iterates over the entries in insertion order.
func (t *SubscriptionTable) All() iter.Seq[Subscription] {
	return func(yield func(Subscription) bool) {
		for _, e := range t.entries {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (t *SubscriptionTable) Len() int { return len(t.entries) }

// Cap returns the fixed capacity.
func (t *SubscriptionTable) Cap() int { return cap(t.entries) }

// Clear removes every entry.
func (t *SubscriptionTable) Clear() {
	clear(t.entries)
	t.entries = t.entries[:0]
}

func (t *SubscriptionTable) index(filter string) int {
	for i := range t.entries {
		if t.entries[i].Filter == filter {
			return i
		}
	}
	return -1
}

// resetStatus marks every entry pending, e.g. after the connection was lost.
func (t *SubscriptionTable) resetStatus() {
	for i := range t.entries {
		t.entries[i].Status = SubscriptionPending
		t.entries[i].pendingID = 0
	}
}

// markSent records that filter was carried by the SUBSCRIBE with packet id id.
func (t *SubscriptionTable) markSent(filter string, id uint16) {
	if i := t.index(filter); i >= 0 {
		t.entries[i].pendingID = id
		t.entries[i].Status = SubscriptionPending
	}
}

// acknowledge applies one SUBACK return code to filter if the entry still
// belongs to the SUBSCRIBE with packet id id. It returns false for a failure code.
func (t *SubscriptionTable) acknowledge(filter string, id uint16, code uint8) bool {
	i := t.index(filter)
	if i < 0 || t.entries[i].pendingID != id {
		return code < 0x80
	}
	e := &t.entries[i]
	e.pendingID = 0
	if code >= 0x80 {
		e.Status = SubscriptionRejected
		return false
	}
	e.Status = SubscriptionGranted
	e.GrantedQoS = QoS(code)
	return true
}

// restore puts back an entry saved with Lookup.
func (t *SubscriptionTable) restore(e Subscription) {
	if i := t.index(e.Filter); i >= 0 {
		t.entries[i] = e
	}
}
