package model

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// TaskStatus is the lifecycle state of a task
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// Lifecycle events accepted by TransitionStatus
const (
	EventAssign   = "assign"
	EventStart    = "start"
	EventComplete = "complete"
	EventCancel   = "cancel"
)

// IsTerminal reports whether no further transitions are possible
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// HoldsResource reports whether a task in this state counts toward a resource's load
func (s TaskStatus) HoldsResource() bool {
	return s == StatusAssigned || s == StatusInProgress
}

// ParseTaskStatus validates a stored status value
func ParseTaskStatus(raw string) (TaskStatus, error) {
	switch s := TaskStatus(raw); s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown task status %q", raw)
}

type lifecycleContext struct {
	TaskID string
}

func stateID(s TaskStatus) statekit.StateID {
	return statekit.StateID(s)
}

// newLifecycleMachine builds the task lifecycle starting at the given state:
//
//	pending -> assigned -> in_progress -> completed
//	pending | assigned | in_progress -> cancelled
func newLifecycleMachine(initial TaskStatus, taskID string) (*statekit.Interpreter[lifecycleContext], error) {
	builder := statekit.NewMachine[lifecycleContext]("task-lifecycle").
		WithInitial(stateID(initial)).
		WithContext(lifecycleContext{TaskID: taskID})

	builder.State(stateID(StatusPending)).
		On(EventAssign).Target(stateID(StatusAssigned)).
		On(EventCancel).Target(stateID(StatusCancelled)).
		Done()

	builder.State(stateID(StatusAssigned)).
		On(EventStart).Target(stateID(StatusInProgress)).
		On(EventCancel).Target(stateID(StatusCancelled)).
		Done()

	builder.State(stateID(StatusInProgress)).
		On(EventComplete).Target(stateID(StatusCompleted)).
		On(EventCancel).Target(stateID(StatusCancelled)).
		Done()

	builder.State(stateID(StatusCompleted)).Done()
	builder.State(stateID(StatusCancelled)).Done()

	machine, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build task lifecycle: %w", err)
	}

	interpreter := statekit.NewInterpreter(machine)
	interpreter.Start()
	return interpreter, nil
}

// TransitionStatus applies a lifecycle event to a task in the given state and returns
// the resulting state. Events that are not valid from the current state return an error.
func TransitionStatus(taskID string, current TaskStatus, event string) (TaskStatus, error) {
	if _, err := ParseTaskStatus(string(current)); err != nil {
		return "", err
	}

	interpreter, err := newLifecycleMachine(current, taskID)
	if err != nil {
		return "", err
	}

	interpreter.Send(statekit.Event{Type: statekit.EventType(event)})
	next := TaskStatus(interpreter.State().Value)
	if next == current {
		return "", fmt.Errorf("event %q is not allowed for task %s in state %q", event, taskID, current)
	}
	return next, nil
}
