package hooks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/INLOpen/nexusstate/core"
)

// EventType defines the type of a hook event.
type EventType string

// --- Event Type Constants ---
const (
	// Provisioning Lifecycle Events
	EventPreProvision            EventType = "PreProvision"
	EventPostBootstrap           EventType = "PostBootstrap"
	EventPostDirectoriesResolved EventType = "PostDirectoriesResolved"
	EventPostProvision           EventType = "PostProvision"
)

// --- HookManager Interface and Implementation ---

// HookManager defines the interface for managing and triggering hooks.
type HookManager interface {
	// Register adds a listener for a specific event type.
	Register(eventType EventType, listener HookListener)
	// Trigger fires all registered listeners for a given event.
	// It handles synchronous vs. asynchronous execution based on the event type and listener preference.
	Trigger(ctx context.Context, event HookEvent) error
	// Stop waits for all asynchronous listeners to complete.
	Stop()
}

// HookEvent is the interface that all event objects must implement.
type HookEvent interface {
	// Type returns the type of the event.
	Type() EventType
	// Payload returns the data associated with the event.
	Payload() interface{}
}

// BaseEvent provides a base implementation for HookEvent.
type BaseEvent struct {
	eventType EventType
	payload   interface{}
}

func (e *BaseEvent) Type() EventType      { return e.eventType }
func (e *BaseEvent) Payload() interface{} { return e.payload }

// PreProvisionPayload describes an instance about to be provisioned. A
// listener returning an error cancels the provisioning.
type PreProvisionPayload struct {
	JobID      core.JobID
	OperatorID string
	// StoragePaths are the configured custom paths; nil means the
	// environment's default directories.
	StoragePaths []string
}

// NewPreProvisionEvent creates an event for before an instance is provisioned.
func NewPreProvisionEvent(payload PreProvisionPayload) HookEvent {
	return &BaseEvent{eventType: EventPreProvision, payload: payload}
}

// PostBootstrapPayload is sent after the native runtime is known to be loaded.
type PostBootstrapPayload struct {
	StagingRoot string
	Duration    time.Duration
}

// NewPostBootstrapEvent creates an event for after the native runtime bootstrap.
func NewPostBootstrapEvent(payload PostBootstrapPayload) HookEvent {
	return &BaseEvent{eventType: EventPostBootstrap, payload: payload}
}

// PostDirectoriesResolvedPayload is sent once per backend, when its local
// storage directories have been resolved.
type PostDirectoriesResolvedPayload struct {
	JobID       core.JobID
	OperatorID  string
	Directories []string
}

// NewPostDirectoriesResolvedEvent creates an event for after the storage directories are resolved.
func NewPostDirectoriesResolvedEvent(payload PostDirectoriesResolvedPayload) HookEvent {
	return &BaseEvent{eventType: EventPostDirectoriesResolved, payload: payload}
}

// PostProvisionPayload reports the outcome of a provisioning request.
type PostProvisionPayload struct {
	JobID        core.JobID
	OperatorID   string
	BaseDir      string
	InstancePath string
	Duration     time.Duration
	Error        error
}

// NewPostProvisionEvent creates an event for after a provisioning request finished.
func NewPostProvisionEvent(payload PostProvisionPayload) HookEvent {
	return &BaseEvent{eventType: EventPostProvision, payload: payload}
}

// --- HookListener Interface ---

// HookListener defines the interface for components that want to listen to events.
type HookListener interface {
	// OnEvent is called by the HookManager when a registered event is triggered.
	// Returning an error from a "Pre" hook cancels the operation.
	// Errors from "Post" hooks are logged without affecting the main operation.
	OnEvent(ctx context.Context, event HookEvent) error

	// Priority returns the listener's priority. Lower numbers are executed first.
	Priority() int

	// IsAsync indicates if the listener should be called asynchronously for Post-events.
	IsAsync() bool
}

// ListenerFunc adapts a function to a synchronous HookListener with priority 0.
type ListenerFunc func(ctx context.Context, event HookEvent) error

func (f ListenerFunc) OnEvent(ctx context.Context, event HookEvent) error { return f(ctx, event) }
func (f ListenerFunc) Priority() int                                        { return 0 }
func (f ListenerFunc) IsAsync() bool                                        { return false }

// listenerWithPriority wraps a listener with its priority.
type listenerWithPriority struct {
	listener HookListener
	priority int
}

// DefaultHookManager is a concrete implementation of HookManager.
type DefaultHookManager struct {
	// slices are kept sorted by priority
	listeners map[EventType][]*listenerWithPriority
	mu        sync.RWMutex
	wg        sync.WaitGroup // async listeners in flight
	logger    *slog.Logger
}

// NewHookManager creates a new DefaultHookManager.
func NewHookManager(logger *slog.Logger) HookManager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DefaultHookManager{
		listeners: make(map[EventType][]*listenerWithPriority),
		logger:    logger,
	}
}

// Register adds a listener for a specific event type, maintaining priority order.
// Listeners with equal priority run in registration order.
func (m *DefaultHookManager) Register(eventType EventType, listener HookListener) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := &listenerWithPriority{
		listener: listener,
		priority: listener.Priority(),
	}

	l := m.listeners[eventType]
	idx := sort.Search(len(l), func(i int) bool {
		return l[i].priority > item.priority
	})

	// Trigger iterates snapshots outside the lock, so never write into l.
	next := make([]*listenerWithPriority, 0, len(l)+1)
	next = append(next, l[:idx]...)
	next = append(next, item)
	next = append(next, l[idx:]...)

	m.listeners[eventType] = next
}

// Trigger fires all registered listeners for a given event in priority order.
func (m *DefaultHookManager) Trigger(ctx context.Context, event HookEvent) error {
	m.mu.RLock()
	listeners := m.listeners[event.Type()]
	m.mu.RUnlock()

	if len(listeners) == 0 {
		return nil
	}

	isPreHook := strings.HasPrefix(string(event.Type()), "Pre")

	for _, item := range listeners {
		isListenerAsync := item.listener.IsAsync()

		// Pre-hooks are always synchronous so they can cancel.
		if isPreHook || !isListenerAsync {
			if isPreHook && isListenerAsync {
				m.logger.Warn("Listener for Pre-hook requested async execution, but Pre-hooks are always synchronous.", "event", event.Type(), "priority", item.priority)
			}

			if err := item.listener.OnEvent(ctx, event); err != nil {
				if isPreHook {
					return fmt.Errorf("pre-hook for event %s (priority %d) failed: %w", event.Type(), item.priority, err)
				}
				m.logger.Error("Error from synchronous post-hook listener", "event", event.Type(), "priority", item.priority, "error", err)
			}
			continue
		}

		m.wg.Add(1)
		go func(currentItem *listenerWithPriority) {
			defer m.wg.Done()
			if err := currentItem.listener.OnEvent(ctx, event); err != nil {
				m.logger.Error("Error from asynchronous post-hook listener", "event", event.Type(), "priority", currentItem.priority, "error", err)
			}
		}(item)
	}
	return nil
}

// Stop waits for all asynchronous listeners to complete.
func (m *DefaultHookManager) Stop() {
	m.wg.Wait()
}
