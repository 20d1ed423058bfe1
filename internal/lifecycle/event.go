package lifecycle

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
)

// Action is a user-triggered lifecycle transition.
type Action string

const (
	ActionInstall    Action = "install"
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
	ActionUninstall  Action = "uninstall"
)

// Phase places an event before or after its action.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// EventName returns "<phase>.<action>".
func EventName(phase Phase, action Action) string {
	return string(phase) + "." + string(action)
}

// Event is published around every lifecycle action. Before-event listeners
// may replace Descriptor or call StopPropagation to skip the action; after
// events are informational.
type Event struct {
	Action     Action
	Phase      Phase
	Descriptor module.Descriptor
	stopped    bool
}

var _ ports.StoppableEvent = (*Event)(nil)

func (e *Event) EventType() string { return EventName(e.Phase, e.Action) }

func (e *Event) Payload() interface{} {
	payload := map[string]interface{}{"action": string(e.Action), "phase": string(e.Phase)}
	if e.Descriptor != nil {
		payload["module_id"] = e.Descriptor.ID()
	}
	return payload
}

// StopPropagation halts delivery and, on a before event, cancels the action.
func (e *Event) StopPropagation() { e.stopped = true }

func (e *Event) Stopped() bool { return e.stopped }

// On subscribes fn to the event for phase and action.
func On(publisher ports.EventPublisher, phase Phase, action Action, fn func(context.Context, *Event) error) (ports.Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("lifecycle: nil listener for %s", EventName(phase, action))
	}
	return publisher.Subscribe(EventName(phase, action), func(ctx context.Context, event ports.DomainEvent) error {
		e, ok := event.(*Event)
		if !ok {
			return fmt.Errorf("lifecycle: unexpected event %T", event)
		}
		return fn(ctx, e)
	})
}
