package hooks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/INLOpen/nexusstate/core"
)

// mockListener is a mock implementation of HookListener for testing.
type mockListener struct {
	priority int
	// signalled on every call, for async tests
	callSignal chan string
	// records call order, for sync tests
	callOrder *[]string
	name      string
	returnErr error
	isAsync   bool
	// runs inside OnEvent
	onEventFunc func(event HookEvent)
	workDelay   time.Duration
}

func (m *mockListener) OnEvent(ctx context.Context, event HookEvent) error {
	if m.workDelay > 0 {
		time.Sleep(m.workDelay)
	}
	if m.onEventFunc != nil {
		m.onEventFunc(event)
	}
	if m.callOrder != nil {
		*m.callOrder = append(*m.callOrder, m.name)
	}
	if m.callSignal != nil {
		m.callSignal <- m.name
	}
	return m.returnErr
}

func (m *mockListener) Priority() int { return m.priority }

func (m *mockListener) IsAsync() bool { return m.isAsync }

func TestNewHookManager(t *testing.T) {
	manager := NewHookManager(nil)
	defaultManager, ok := manager.(*DefaultHookManager)
	if !ok {
		t.Fatalf("NewHookManager did not return a *DefaultHookManager")
	}
	if defaultManager.listeners == nil {
		t.Error("Expected listeners map to be initialized, but it was nil")
	}
	if defaultManager.logger == nil {
		t.Error("Expected logger to be initialized, but it was nil")
	}
}

func TestDefaultHookManager_Register(t *testing.T) {
	manager := NewHookManager(nil).(*DefaultHookManager)

	manager.Register(EventPreProvision, &mockListener{name: "p10", priority: 10})
	manager.Register(EventPreProvision, &mockListener{name: "p1", priority: 1})
	manager.Register(EventPreProvision, &mockListener{name: "p5a", priority: 5})
	manager.Register(EventPreProvision, &mockListener{name: "p5b", priority: 5})

	listeners := manager.listeners[EventPreProvision]
	want := []string{"p1", "p5a", "p5b", "p10"}
	if len(listeners) != len(want) {
		t.Fatalf("Expected %d listeners to be registered, got %d", len(want), len(listeners))
	}
	for i, name := range want {
		if got := listeners[i].listener.(*mockListener).name; got != name {
			t.Errorf("listener %d: got %s, want %s", i, got, name)
		}
	}
}

func TestDefaultHookManager_RegisterLeavesSnapshotIntact(t *testing.T) {
	manager := NewHookManager(nil).(*DefaultHookManager)
	for i := 0; i < 4; i++ {
		manager.Register(EventPostProvision, &mockListener{name: "late", priority: 10})
	}

	manager.mu.RLock()
	snapshot := manager.listeners[EventPostProvision]
	manager.mu.RUnlock()
	first := snapshot[0]

	manager.Register(EventPostProvision, &mockListener{name: "early", priority: 1})

	if snapshot[0] != first {
		t.Fatalf("Register modified a listener slice already handed to Trigger")
	}
	if got := manager.listeners[EventPostProvision][0].listener.(*mockListener).name; got != "early" {
		t.Errorf("Expected the new listener first, got %s", got)
	}
}

func TestDefaultHookManager_RegisterDuringTrigger(t *testing.T) {
	manager := NewHookManager(nil)
	var calls atomic.Int64
	counter := ListenerFunc(func(ctx context.Context, event HookEvent) error {
		calls.Add(1)
		return nil
	})
	manager.Register(EventPostBootstrap, counter)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			manager.Register(EventPostBootstrap, &mockListener{priority: -i})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = manager.Trigger(context.Background(), NewPostBootstrapEvent(PostBootstrapPayload{}))
		}
	}()
	wg.Wait()
	manager.Stop()

	if calls.Load() != 200 {
		t.Errorf("Expected the counting listener to run on every trigger, got %d calls", calls.Load())
	}
}

func TestDefaultHookManager_Trigger(t *testing.T) {
	t.Run("PreHook", func(t *testing.T) {
		t.Run("should execute in priority order synchronously", func(t *testing.T) {
			manager := NewHookManager(nil)
			callOrder := make([]string, 0)

			manager.Register(EventPreProvision, &mockListener{name: "listener1", priority: 10, callOrder: &callOrder})
			manager.Register(EventPreProvision, &mockListener{name: "listener2", priority: 1, callOrder: &callOrder})
			manager.Register(EventPreProvision, &mockListener{name: "listener3", priority: 5, callOrder: &callOrder})

			err := manager.Trigger(context.Background(), NewPreProvisionEvent(PreProvisionPayload{OperatorID: "op"}))
			if err != nil {
				t.Fatalf("Trigger returned an unexpected error: %v", err)
			}

			expectedOrder := []string{"listener2", "listener3", "listener1"}
			if len(callOrder) != len(expectedOrder) {
				t.Fatalf("Expected %d listeners to be called, but %d were", len(expectedOrder), len(callOrder))
			}
			for i, name := range expectedOrder {
				if callOrder[i] != name {
					t.Errorf("Call order mismatch at index %d. Got %s, want %s", i, callOrder[i], name)
				}
			}
		})

		t.Run("should stop execution and return error on failure", func(t *testing.T) {
			manager := NewHookManager(nil)
			callOrder := make([]string, 0)
			simulatedErr := errors.New("quota exceeded")

			manager.Register(EventPreProvision, &mockListener{name: "p10", priority: 10, callOrder: &callOrder})
			manager.Register(EventPreProvision, &mockListener{name: "p1", priority: 1, callOrder: &callOrder})
			manager.Register(EventPreProvision, &mockListener{name: "p5_err", priority: 5, callOrder: &callOrder, returnErr: simulatedErr})

			err := manager.Trigger(context.Background(), NewPreProvisionEvent(PreProvisionPayload{}))
			if !errors.Is(err, simulatedErr) {
				t.Fatalf("Trigger returned wrong error. Got %v, want %v", err, simulatedErr)
			}
			if len(callOrder) != 2 {
				t.Fatalf("Expected listeners after the failing one to be skipped. Called: %v", callOrder)
			}
		})

		t.Run("should expose the payload", func(t *testing.T) {
			manager := NewHookManager(nil)
			jobID := core.NewJobID()
			var seen PreProvisionPayload

			manager.Register(EventPreProvision, ListenerFunc(func(_ context.Context, event HookEvent) error {
				seen = event.Payload().(PreProvisionPayload)
				return nil
			}))

			payload := PreProvisionPayload{JobID: jobID, OperatorID: "op", StoragePaths: []string{"/a"}}
			if err := manager.Trigger(context.Background(), NewPreProvisionEvent(payload)); err != nil {
				t.Fatalf("Trigger returned an unexpected error: %v", err)
			}
			if seen.JobID != jobID || seen.OperatorID != "op" || len(seen.StoragePaths) != 1 {
				t.Errorf("Listener saw unexpected payload: %+v", seen)
			}
		})

		t.Run("should ignore async flag and run synchronously", func(t *testing.T) {
			manager := NewHookManager(nil)
			callOrder := make([]string, 0)
			manager.Register(EventPreProvision, &mockListener{name: "pre_async", priority: 1, isAsync: true, callOrder: &callOrder})

			if err := manager.Trigger(context.Background(), NewPreProvisionEvent(PreProvisionPayload{})); err != nil {
				t.Fatalf("Trigger returned an unexpected error: %v", err)
			}
			if len(callOrder) != 1 || callOrder[0] != "pre_async" {
				t.Errorf("Expected pre-hook to run synchronously despite async flag. Call order: %v", callOrder)
			}
		})
	})

	t.Run("PostHook", func(t *testing.T) {
		t.Run("should execute async and sync listeners correctly", func(t *testing.T) {
			manager := NewHookManager(nil)
			signalChan := make(chan string, 1)
			callOrder := make([]string, 0)

			manager.Register(EventPostProvision, &mockListener{name: "async", priority: 10, isAsync: true, callSignal: signalChan})
			manager.Register(EventPostProvision, &mockListener{name: "sync", priority: 1, callOrder: &callOrder})

			err := manager.Trigger(context.Background(), NewPostProvisionEvent(PostProvisionPayload{InstancePath: "/x"}))
			if err != nil {
				t.Fatalf("Trigger returned an unexpected error for post-hook: %v", err)
			}
			if len(callOrder) != 1 || callOrder[0] != "sync" {
				t.Errorf("Expected synchronous listener to be called immediately. Got call order: %v", callOrder)
			}

			select {
			case name := <-signalChan:
				if name != "async" {
					t.Errorf("Received signal from wrong listener. Got %s", name)
				}
			case <-time.After(time.Second):
				t.Fatal("Timed out waiting for async listener to be called")
			}
			manager.Stop()
		})

		t.Run("should not return error from sync listener and continue execution", func(t *testing.T) {
			manager := NewHookManager(nil)
			callOrder := make([]string, 0)

			manager.Register(EventPostBootstrap, &mockListener{name: "p1_err", priority: 1, callOrder: &callOrder, returnErr: errors.New("post hook error")})
			manager.Register(EventPostBootstrap, &mockListener{name: "p5", priority: 5, callOrder: &callOrder})

			err := manager.Trigger(context.Background(), NewPostBootstrapEvent(PostBootstrapPayload{StagingRoot: "/tmp"}))
			if err != nil {
				t.Fatalf("Trigger should not return error for post-hook failures, but got: %v", err)
			}
			if len(callOrder) != 2 {
				t.Fatalf("Expected all listeners to be called. Called: %v", callOrder)
			}
		})

		t.Run("should run many async listeners", func(t *testing.T) {
			manager := NewHookManager(nil)
			var wg sync.WaitGroup
			var calls atomic.Int32
			for i := 0; i < 8; i++ {
				wg.Add(1)
				manager.Register(EventPostDirectoriesResolved, &mockListener{
					priority: i,
					isAsync:  true,
					onEventFunc: func(HookEvent) {
						calls.Add(1)
						wg.Done()
					},
				})
			}

			_ = manager.Trigger(context.Background(), NewPostDirectoriesResolvedEvent(PostDirectoriesResolvedPayload{Directories: []string{"/a"}}))
			waitTimeout(&wg, time.Second, t)
			manager.Stop()
			if calls.Load() != 8 {
				t.Errorf("Expected 8 async calls, got %d", calls.Load())
			}
		})
	})

	t.Run("General", func(t *testing.T) {
		logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
		manager := NewHookManager(logger)

		if err := manager.Trigger(context.Background(), NewPreProvisionEvent(PreProvisionPayload{})); err != nil {
			t.Fatalf("Trigger returned an unexpected error when no listeners are registered: %v", err)
		}
	})
}

func TestDefaultHookManager_Stop(t *testing.T) {
	manager := NewHookManager(nil)
	var listenerCompleted atomic.Bool
	delay := 50 * time.Millisecond

	manager.Register(EventPostProvision, &mockListener{
		priority:    1,
		isAsync:     true,
		workDelay:   delay,
		onEventFunc: func(HookEvent) { listenerCompleted.Store(true) },
	})

	_ = manager.Trigger(context.Background(), NewPostProvisionEvent(PostProvisionPayload{}))

	manager.Stop()
	if !listenerCompleted.Load() {
		t.Error("Listener did not complete its work before Stop() returned")
	}
}

// waitTimeout waits for a WaitGroup, failing the test after timeout.
func waitTimeout(wg *sync.WaitGroup, timeout time.Duration, t *testing.T) {
	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()
	select {
	case <-c:
	case <-time.After(timeout):
		t.Fatal("Timed out waiting for listeners to be called")
	}
}

func BenchmarkTrigger_PreHook_10_Listeners(b *testing.B) {
	manager := NewHookManager(nil)
	for i := 0; i < 10; i++ {
		manager.Register(EventPreProvision, &mockListener{name: "l", priority: i})
	}
	event := NewPreProvisionEvent(PreProvisionPayload{})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = manager.Trigger(ctx, event)
	}
}

func BenchmarkRegister(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		manager := NewHookManager(nil)
		for j := 0; j < 100; j++ {
			manager.Register(EventPostProvision, &mockListener{name: "l", priority: j})
		}
	}
}
