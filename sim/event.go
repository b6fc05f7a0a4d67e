package sim

// EventStatus is the delivery state of a NetworkEvent. A status only moves
// forward: pending events become delivered or dropped, and both are terminal.
type EventStatus int

// The possible statuses of a NetworkEvent.
const (
	EventPending EventStatus = iota
	EventDelivered
	EventDropped
)

func (s EventStatus) String() string {
	switch s {
	case EventPending:
		return "pending"
	case EventDelivered:
		return "delivered"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// A NetworkEvent is one application-level event in flight between two virtual
// devices. The engine never inspects Type or Payload.
type NetworkEvent struct {
	ID     string
	Source string
	Target string
	Type   string

	Payload []byte

	CreatedAt VTimeInMs
	DeliverAt VTimeInMs

	Status EventStatus

	// Duplicate marks events synthesized by the duplication policy. A
	// duplicate is never dropped or duplicated again.
	Duplicate bool
}
