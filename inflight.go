package mqtiny

import (
	"fmt"
	"time"
)

// slotState is the step an outgoing exchange is waiting for.
type slotState uint8

const (
	slotFree          slotState = iota
	slotAwaitPuback             // QoS 1 PUBLISH sent
	slotAwaitPubrec             // QoS 2 PUBLISH sent
	slotAwaitPubcomp            // PUBREC received, PUBREL sent
	slotAwaitSuback             // SUBSCRIBE sent
	slotAwaitUnsuback           // UNSUBSCRIBE sent
)

var slotStateNames = [...]string{
	slotFree:          "free",
	slotAwaitPuback:   "awaiting PUBACK",
	slotAwaitPubrec:   "awaiting PUBREC",
	slotAwaitPubcomp:  "awaiting PUBCOMP",
	slotAwaitSuback:   "awaiting SUBACK",
	slotAwaitUnsuback: "awaiting UNSUBACK",
}

func (s slotState) String() string {
	if int(s) < len(slotStateNames) {
		return slotStateNames[s]
	}
	return "unknown"
}

// inflightSlot is one packet-id slot.
type inflightSlot struct {
	id    uint16
	state slotState
	sent  time.Time

	// topic filters of a SUBSCRIBE or UNSUBSCRIBE, in packet order
	filters []string

	// encoded PUBLISH kept for resending when the session is persistent
	msg []byte
}

// inflightTable is the fixed-capacity packet-id allocator and QoS tracker.
// Ids are unique among allocated slots; the lowest unused id is handed out.
type inflightTable struct {
	slots []inflightSlot
	used  int
}

// newInflightTable returns a table with capacity slots. When msgSize is
// positive every slot gets its own buffer of that size for resending.
func newInflightTable(capacity, msgSize int) *inflightTable {
	t := &inflightTable{slots: make([]inflightSlot, capacity)}
	if msgSize > 0 {
		for i := range t.slots {
			t.slots[i].msg = make([]byte, 0, msgSize)
		}
	}
	return t
}

// allocate reserves the lowest unused packet id in state.
func (t *inflightTable) allocate(state slotState, now time.Time) (*inflightSlot, error) {
	if t.used == len(t.slots) {
		return nil, ErrOutOfPacketIds
	}

	id := uint16(1)
	for t.find(id) != nil {
		id++
	}

	for i := range t.slots {
		s := &t.slots[i]
		if s.state == slotFree {
			s.id = id
			s.state = state
			s.sent = now
			s.filters = s.filters[:0]
			s.msg = s.msg[:0]
			t.used++
			return s, nil
		}
	}
	// used is out of sync with the slots
	panic("mqtiny: inflight table corrupted")
}

// find returns the allocated slot with id, or nil.
func (t *inflightTable) find(id uint16) *inflightSlot {
	for i := range t.slots {
		if t.slots[i].state != slotFree && t.slots[i].id == id {
			return &t.slots[i]
		}
	}
	return nil
}

func (t *inflightTable) release(s *inflightSlot) {
	s.state = slotFree
	s.id = 0
	clear(s.filters)
	s.filters = s.filters[:0]
	s.msg = s.msg[:0]
	t.used--
}

// expect returns the slot for id if it is in state want. Otherwise it
// returns a protocol error and changes nothing.
func (t *inflightTable) expect(id uint16, want slotState, packet string) (*inflightSlot, error) {
	s := t.find(id)
	if s == nil {
		return nil, fmt.Errorf("%w: %s for unknown packet id %d", ErrProtocol, packet, id)
	}
	if s.state != want {
		return nil, fmt.Errorf("%w: %s for packet id %d which is %s", ErrProtocol, packet, id, s.state)
	}
	return s, nil
}

// puback completes a QoS 1 exchange.
func (t *inflightTable) puback(id uint16) error {
	s, err := t.expect(id, slotAwaitPuback, "PUBACK")
	if err != nil {
		return err
	}
	t.release(s)
	return nil
}

// pubrec moves a QoS 2 exchange to awaiting PUBCOMP. The caller sends PUBREL.
func (t *inflightTable) pubrec(id uint16, now time.Time) error {
	s, err := t.expect(id, slotAwaitPubrec, "PUBREC")
	if err != nil {
		return err
	}
	s.state = slotAwaitPubcomp
	s.sent = now
	s.msg = s.msg[:0]
	return nil
}

// pubcomp completes a QoS 2 exchange.
func (t *inflightTable) pubcomp(id uint16) error {
	s, err := t.expect(id, slotAwaitPubcomp, "PUBCOMP")
	if err != nil {
		return err
	}
	t.release(s)
	return nil
}

// reset frees every slot.
func (t *inflightTable) reset() {
	for i := range t.slots {
		if t.slots[i].state != slotFree {
			t.release(&t.slots[i])
		}
	}
}

// resetRequests frees SUBSCRIBE and UNSUBSCRIBE slots and keeps publishes.
func (t *inflightTable) resetRequests() {
	for i := range t.slots {
		switch t.slots[i].state {
		case slotAwaitSuback, slotAwaitUnsuback:
			t.release(&t.slots[i])
		}
	}
}

func (t *inflightTable) len() int { return t.used }

// inboundTable tracks inbound QoS 2 packet ids that were answered with
// PUBREC and are waiting for PUBREL.
type inboundTable struct {
	ids []uint16
}

func newInboundTable(capacity int) *inboundTable {
	return &inboundTable{ids: make([]uint16, 0, capacity)}
}

func (t *inboundTable) contains(id uint16) bool {
	for _, v := range t.ids {
		if v == id {
			return true
		}
	}
	return false
}

// add records id. It returns false if the table is full.
func (t *inboundTable) add(id uint16) bool {
	if len(t.ids) == cap(t.ids) {
		return false
	}
	t.ids = append(t.ids, id)
	return true
}

func (t *inboundTable) remove(id uint16) {
	for i, v := range t.ids {
		if v == id {
			t.ids[i] = t.ids[len(t.ids)-1]
			t.ids = t.ids[:len(t.ids)-1]
			return
		}
	}
}

func (t *inboundTable) reset() {
	t.ids = t.ids[:0]
}
