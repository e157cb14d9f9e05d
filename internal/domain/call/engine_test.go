package call

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"reviewcall/internal/domain/review"
	"reviewcall/internal/domain/session"
	"reviewcall/internal/platform/jobs"
)

type engineBackend struct{}

func (engineBackend) FetchObjectives(context.Context, string) ([]review.SourceObjective, error) {
	return nil, nil
}

func (engineBackend) FetchReviewForm(context.Context, string, string) (review.Record, bool, error) {
	return review.Record{}, false, nil
}

func (engineBackend) ListRecords(context.Context) ([]review.Record, error) { return nil, nil }

func (engineBackend) UpdateKeyResultActual(context.Context, string, float64) error { return nil }

func (engineBackend) UpdateRecord(context.Context, string, map[string]any) error { return nil }

func (engineBackend) CreateRecord(context.Context, map[string]any) (string, error) {
	return "rec-1", nil
}

func newTestEngine(t *testing.T) (*Engine, *fakeEmitter, session.StoreAPI) {
	t.Helper()
	return newTestEngineWithSilence(t, SilenceThresholds{
		Nudge: time.Hour, Offer: 2 * time.Hour, End: 3 * time.Hour,
	})
}

func newTestEngineWithSilence(t *testing.T, thresholds SilenceThresholds) (*Engine, *fakeEmitter, session.StoreAPI) {
	t.Helper()
	emitter := &fakeEmitter{}
	store := session.NewMemStore()
	cache := session.NewCache(session.Params{
		SessionID:    "sess-1",
		EmployeeID:   "emp-1",
		EmployeeName: "Dana Reyes",
		ManagerID:    "mgr-1",
		ManagerName:  "Priya Shah",
		Backend:      engineBackend{},
		Store:        store,
	})
	t.Cleanup(cache.Close)
	queue := jobs.New(nil)
	t.Cleanup(queue.Drain)

	dispatcher := NewDispatcher(cache, engineBackend{}, queue, emitter, nil, func() string { return "rec-1" })
	monitor := NewSilenceMonitor(emitter, nil, thresholds, dispatcher.Busy)
	t.Cleanup(monitor.Stop)

	engine := NewEngine(EngineParams{
		SessionID:   "sess-1",
		Greeting:    "Hello, I'm Ava, your review facilitator.",
		Attribution: NewAttribution("Ava", "Dana Reyes", "Priya Shah"),
		Dispatcher:  dispatcher,
		Monitor:     monitor,
		Emitter:     emitter,
		Cache:       cache,
		Store:       store,
	})
	return engine, emitter, store
}

func TestCallStartGreetsAndActivates(t *testing.T) {
	engine, emitter, _ := newTestEngine(t)

	engine.HandleEvent(context.Background(), Event{Type: EventCallStart})

	if !engine.Active() {
		t.Fatalf("expected engine active after call start")
	}
	if emitter.messageCount() != 1 {
		t.Fatalf("expected greeting message, got %d", emitter.messageCount())
	}
	if emitter.messages[0].Role != RoleAssistant {
		t.Fatalf("greeting should come from the assistant")
	}
}

func TestTranscriptLabelsByChannelOrder(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	engine.HandleEvent(ctx, Event{Type: EventCallStart})
	engine.HandleEvent(ctx, Event{
		Type: EventMessage, MessageType: MessageTranscript,
		Role: "user", ChannelID: "ch-b", TranscriptType: TranscriptFinal,
		Transcript: "I finished the migration.",
	})
	engine.HandleEvent(ctx, Event{
		Type: EventMessage, MessageType: MessageTranscript,
		Role: "user", ChannelID: "ch-a", TranscriptType: TranscriptFinal,
		Transcript: "Great work this quarter.",
	})

	lines := engine.Transcript()
	if len(lines) != 2 {
		t.Fatalf("expected 2 transcript lines, got %d", len(lines))
	}
	if lines[0].Speaker != "Dana Reyes" {
		t.Fatalf("first channel should be the employee, got %q", lines[0].Speaker)
	}
	if lines[1].Speaker != "Priya Shah" {
		t.Fatalf("second channel should be the manager, got %q", lines[1].Speaker)
	}
}

func TestPartialTranscriptReplacedAndNotArchived(t *testing.T) {
	engine, _, store := newTestEngine(t)
	ctx := context.Background()

	engine.HandleEvent(ctx, Event{Type: EventCallStart})
	engine.HandleEvent(ctx, Event{
		Type: EventMessage, MessageType: MessageTranscript,
		Role: "user", ChannelID: "ch-a", TranscriptType: TranscriptPartial,
		Transcript: "I finished the",
	})
	engine.HandleEvent(ctx, Event{
		Type: EventMessage, MessageType: MessageTranscript,
		Role: "user", ChannelID: "ch-a", TranscriptType: TranscriptFinal,
		Transcript: "I finished the migration.",
	})

	lines := engine.Transcript()
	if len(lines) != 1 {
		t.Fatalf("partial should be replaced by final, got %d lines", len(lines))
	}
	if lines[0].Content != "I finished the migration." {
		t.Fatalf("unexpected content: %q", lines[0].Content)
	}

	archived, err := store.ListTranscript(ctx, "sess-1")
	if err != nil {
		t.Fatalf("list transcript: %v", err)
	}
	if len(archived) != 1 {
		t.Fatalf("only the final line should be archived, got %d", len(archived))
	}
}

func TestAssistantTranscriptCarriesInferredAddressee(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	engine.HandleEvent(ctx, Event{Type: EventCallStart})
	engine.HandleEvent(ctx, Event{
		Type: EventMessage, MessageType: MessageTranscript,
		Role: RoleAssistant, TranscriptType: TranscriptFinal,
		Transcript: "Dana Reyes, how did the migration go?",
	})

	lines := engine.Transcript()
	if lines[len(lines)-1].Addressee != "Dana Reyes" {
		t.Fatalf("expected the assistant line addressed to the employee, got %q", lines[len(lines)-1].Addressee)
	}
}

func TestToolCallEventsReachTheDispatcher(t *testing.T) {
	engine, emitter, _ := newTestEngine(t)
	ctx := context.Background()

	args, _ := json.Marshal(map[string]any{
		"role": review.RoleEmployee, "itemType": review.ItemAccomplishments,
		"value": "Shipped the billing migration.",
	})
	engine.HandleEvent(ctx, Event{Type: EventCallStart})
	engine.HandleEvent(ctx, Event{
		Type: EventMessage, MessageType: MessageToolCalls,
		ToolCalls: []ToolCall{{ID: "c1", Name: ToolUpdateAssessment, Arguments: args}},
	})

	if emitter.outputCount() != 1 {
		t.Fatalf("expected one tool ack, got %d", emitter.outputCount())
	}
	if emitter.outputs[0].ToolCallID != "c1" {
		t.Fatalf("ack carries wrong correlation id: %q", emitter.outputs[0].ToolCallID)
	}
}

func TestAssistantSpeechHoldsSilenceTimer(t *testing.T) {
	engine, emitter, _ := newTestEngineWithSilence(t, testThresholds())
	ctx := context.Background()

	engine.HandleEvent(ctx, Event{Type: EventCallStart})
	engine.HandleEvent(ctx, Event{Type: EventSpeechStart, Role: RoleAssistant})
	greetings := emitter.messageCount()

	time.Sleep(120 * time.Millisecond)
	if got := emitter.messageCount(); got != greetings {
		t.Fatalf("silence nudge fired while the assistant was speaking: %d messages", got)
	}

	engine.HandleEvent(ctx, Event{Type: EventSpeechEnd, Role: RoleAssistant})
	waitFor(t, func() bool { return emitter.messageCount() > greetings }, "nudge after assistant finished")
}

func TestCallEndDeactivatesAndIsIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	engine.HandleEvent(ctx, Event{Type: EventCallStart})
	engine.HandleEvent(ctx, Event{Type: EventCallEnd})
	if engine.Active() {
		t.Fatalf("expected engine inactive after call end")
	}
	// A duplicate end event must not panic or clear twice.
	engine.HandleEvent(ctx, Event{Type: EventCallEnd})
}
