package datarecording

import (
	"github.com/synclab/netsim/sim"
)

// eventTable is the table delivery and drop records go into.
const eventTable = "network_events"

// EventEntry is one row in the event table.
type EventEntry struct {
	ID        string
	Source    string
	Target    string
	Type      string
	Status    string
	Duplicate bool
	CreatedAt float64
	SettledAt float64
}

// An EventLogger is an engine hook that records every delivered and dropped
// event into a DataRecorder.
type EventLogger struct {
	recorder DataRecorder
}

// NewEventLogger creates an EventLogger on top of the given recorder and
// creates the event table. Attach it to an engine with AcceptHook.
func NewEventLogger(recorder DataRecorder) *EventLogger {
	l := &EventLogger{recorder: recorder}
	l.recorder.CreateTable(eventTable, EventEntry{})

	return l
}

// Func records one delivery or drop notification.
func (l *EventLogger) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosEventDelivered &&
		ctx.Pos != sim.HookPosEventDropped {
		return
	}

	evt, ok := ctx.Item.(*sim.NetworkEvent)
	if !ok {
		return
	}

	l.recorder.InsertData(eventTable, EventEntry{
		ID:        evt.ID,
		Source:    evt.Source,
		Target:    evt.Target,
		Type:      evt.Type,
		Status:    evt.Status.String(),
		Duplicate: evt.Duplicate,
		CreatedAt: float64(evt.CreatedAt),
		SettledAt: float64(ctx.Now),
	})
}
