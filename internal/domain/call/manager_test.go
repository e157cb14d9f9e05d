package call

import (
	"context"
	"testing"
	"time"

	"reviewcall/internal/domain/session"
	"reviewcall/internal/platform/jobs"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	queue := jobs.New(nil)
	t.Cleanup(queue.Drain)

	manager := NewManager(ManagerParams{
		Backend:       engineBackend{},
		Store:         session.NewMemStore(),
		Queue:         queue,
		AssistantName: "Ava",
		Competencies:  []string{"Communication", "Teamwork", "Problem Solving", "Leadership", "Professionalism"},
		Silence: SilenceThresholds{
			Nudge: time.Hour, Offer: 2 * time.Hour, End: 3 * time.Hour,
		},
		EndCallDelay: 10 * time.Millisecond,
	})
	t.Cleanup(manager.Shutdown)
	return manager
}

func managerStartParams() StartParams {
	return StartParams{
		SessionID:    "sess-1",
		EmployeeID:   "emp-1",
		EmployeeName: "Dana Reyes",
		ManagerID:    "mgr-1",
		ManagerName:  "Priya Shah",
	}
}

func TestStartSameSessionIDIsIdempotent(t *testing.T) {
	manager := newTestManager(t)

	first, err := manager.Start(managerStartParams())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	second, err := manager.Start(managerStartParams())
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if first != second {
		t.Fatalf("expected the same session for a repeated start")
	}
}

func TestEndSessionToolRetiresSession(t *testing.T) {
	manager := newTestManager(t)
	sess, err := manager.Start(managerStartParams())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx := context.Background()
	sess.Engine.HandleEvent(ctx, Event{Type: EventCallStart})
	sess.Engine.HandleEvent(ctx, Event{
		Type:        EventMessage,
		MessageType: MessageToolCalls,
		ToolCalls:   []ToolCall{{ID: "c1", Name: ToolEndSession}},
	})

	waitFor(t, func() bool {
		_, ok := manager.Get("sess-1")
		return !ok
	}, "session retirement after the end tool")
}

func TestSilenceForcedEndRetiresSession(t *testing.T) {
	queue := jobs.New(nil)
	t.Cleanup(queue.Drain)

	manager := NewManager(ManagerParams{
		Backend:       engineBackend{},
		Store:         session.NewMemStore(),
		Queue:         queue,
		AssistantName: "Ava",
		Competencies:  []string{"Communication", "Teamwork", "Problem Solving", "Leadership", "Professionalism"},
		Silence:       testThresholds(),
		EndCallDelay:  10 * time.Millisecond,
	})
	t.Cleanup(manager.Shutdown)

	sess, err := manager.Start(StartParams{
		SessionID:    "sess-quiet",
		EmployeeID:   "emp-1",
		EmployeeName: "Dana Reyes",
		ManagerName:  "Priya Shah",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sess.Engine.HandleEvent(context.Background(), Event{Type: EventCallStart})

	waitFor(t, func() bool {
		_, ok := manager.Get("sess-quiet")
		return !ok
	}, "session retirement after silence escalation")
}
