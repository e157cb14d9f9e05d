package call

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"reviewcall/internal/domain/review"
	"reviewcall/internal/platform/jobs"
)

type fakeEmitter struct {
	mu       sync.Mutex
	outputs  []ToolOutput
	messages []ChatMessage
	notices  []Notice
	endCalls int
}

func (f *fakeEmitter) EmitToolOutput(out ToolOutput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs = append(f.outputs, out)
}

func (f *fakeEmitter) EmitMessage(msg ChatMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeEmitter) Notify(level, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, Notice{Level: level, Text: text})
}

func (f *fakeEmitter) RequestEndCall() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endCalls++
}

func (f *fakeEmitter) outputCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outputs)
}

type fakeStore struct {
	mu       sync.Mutex
	record   review.Record
	updates  []review.Update
	submits  []string
	submitOK bool
	applyErr error
}

func (f *fakeStore) ApplyUpdate(_ context.Context, update review.Update) (review.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	return f.record.Clone(), f.applyErr
}

func (f *fakeStore) Submit(_ context.Context, recordID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, recordID)
	return f.submitOK
}

type fakeWriter struct {
	mu    sync.Mutex
	calls []struct {
		id     string
		actual float64
	}
	done chan struct{}
}

func (f *fakeWriter) UpdateKeyResultActual(_ context.Context, keyResultID string, actual float64) error {
	f.mu.Lock()
	f.calls = append(f.calls, struct {
		id     string
		actual float64
	}{keyResultID, actual})
	f.mu.Unlock()
	if f.done != nil {
		f.done <- struct{}{}
	}
	return nil
}

func rawArgs(t *testing.T, args map[string]any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return raw
}

func newTestDispatcher(store *fakeStore, writer *fakeWriter, emitter *fakeEmitter) (*Dispatcher, *jobs.Queue) {
	queue := jobs.New(nil)
	d := NewDispatcher(store, writer, queue, emitter, nil, func() string { return "rec-1" })
	return d, queue
}

func TestDispatchAcksEveryCallInOrder(t *testing.T) {
	store := &fakeStore{submitOK: true}
	emitter := &fakeEmitter{}
	d, queue := newTestDispatcher(store, &fakeWriter{}, emitter)
	defer queue.Drain()

	d.Dispatch(context.Background(), []ToolCall{
		{ID: "c1", Name: ToolUpdateAssessment, Arguments: rawArgs(t, map[string]any{
			"role": review.RoleEmployee, "itemType": review.ItemCompetency,
			"itemName": "Teamwork", "rating": 4,
		})},
		{ID: "c2", Name: "mystery_tool"},
		{ID: "c3", Name: ToolSubmitAssessment, Arguments: rawArgs(t, map[string]any{"recordId": "rec-1"})},
	})

	if len(emitter.outputs) != 3 {
		t.Fatalf("expected 3 acks, got %d", len(emitter.outputs))
	}
	for i, wantID := range []string{"c1", "c2", "c3"} {
		if emitter.outputs[i].ToolCallID != wantID {
			t.Fatalf("ack %d: expected correlation id %s, got %s", i, wantID, emitter.outputs[i].ToolCallID)
		}
	}
	if emitter.outputs[1].Output != "Unknown tool mystery_tool." {
		t.Fatalf("unexpected unknown-tool ack: %q", emitter.outputs[1].Output)
	}
}

func TestUpdateProgressAcksBeforeBackendWrite(t *testing.T) {
	store := &fakeStore{}
	writer := &fakeWriter{done: make(chan struct{}, 1)}
	emitter := &fakeEmitter{}
	d, queue := newTestDispatcher(store, writer, emitter)
	defer queue.Drain()

	d.Dispatch(context.Background(), []ToolCall{
		{ID: "c1", Name: ToolUpdateProgress, Arguments: rawArgs(t, map[string]any{
			"role": review.RoleEmployee, "keyResultId": "kr-1", "actual": 7.5,
		})},
	})

	if emitter.outputCount() != 1 {
		t.Fatalf("expected immediate ack")
	}
	if emitter.outputs[0].Output != "Progress recorded." {
		t.Fatalf("unexpected ack: %q", emitter.outputs[0].Output)
	}
	if len(store.updates) != 1 || store.updates[0].Actual == nil || *store.updates[0].Actual != 7.5 {
		t.Fatalf("cache update not applied: %+v", store.updates)
	}

	select {
	case <-writer.done:
	case <-time.After(time.Second):
		t.Fatalf("backend write never ran")
	}
	if writer.calls[0].id != "kr-1" || writer.calls[0].actual != 7.5 {
		t.Fatalf("unexpected backend write: %+v", writer.calls[0])
	}
}

func TestUpdateProgressResolvesKeyResultIDByName(t *testing.T) {
	store := &fakeStore{record: review.Record{
		Goals: []review.Objective{{
			ID: "obj-1", Title: "Grow revenue",
			KeyResults: []review.KeyResult{{ID: "kr-7", Name: "New Accounts", Target: 10}},
		}},
	}}
	writer := &fakeWriter{done: make(chan struct{}, 1)}
	emitter := &fakeEmitter{}
	d, queue := newTestDispatcher(store, writer, emitter)
	defer queue.Drain()

	d.Dispatch(context.Background(), []ToolCall{
		{ID: "c1", Name: ToolUpdateProgress, Arguments: rawArgs(t, map[string]any{
			"role": review.RoleEmployee, "keyResultName": "new accounts", "actual": 6,
		})},
	})

	select {
	case <-writer.done:
	case <-time.After(time.Second):
		t.Fatalf("backend write never ran")
	}
	if writer.calls[0].id != "kr-7" {
		t.Fatalf("expected the id resolved from the record, got %q", writer.calls[0].id)
	}
}

func TestUpdateProgressWithoutActualIsRejected(t *testing.T) {
	store := &fakeStore{}
	emitter := &fakeEmitter{}
	d, queue := newTestDispatcher(store, &fakeWriter{}, emitter)
	defer queue.Drain()

	d.Dispatch(context.Background(), []ToolCall{
		{ID: "c1", Name: ToolUpdateProgress, Arguments: rawArgs(t, map[string]any{"keyResultId": "kr-1"})},
	})

	if len(store.updates) != 0 {
		t.Fatalf("expected no cache update")
	}
	if emitter.outputs[0].Output != "Missing actual value for the progress update." {
		t.Fatalf("unexpected ack: %q", emitter.outputs[0].Output)
	}
}

func TestSubmitFailureAcksErrorAndNotifies(t *testing.T) {
	store := &fakeStore{submitOK: false}
	emitter := &fakeEmitter{}
	d, queue := newTestDispatcher(store, &fakeWriter{}, emitter)
	defer queue.Drain()

	d.Dispatch(context.Background(), []ToolCall{
		{ID: "c1", Name: ToolSubmitCompetencies, Arguments: rawArgs(t, map[string]any{"recordId": "rec-1"})},
	})

	if emitter.outputs[0].Output != "Submitting the competencies failed, we can retry in a moment." {
		t.Fatalf("unexpected ack: %q", emitter.outputs[0].Output)
	}
	if len(emitter.notices) != 1 || emitter.notices[0].Level != "error" {
		t.Fatalf("expected an error notice, got %+v", emitter.notices)
	}
}

func TestEndSessionRequestsCallEnd(t *testing.T) {
	emitter := &fakeEmitter{}
	d, queue := newTestDispatcher(&fakeStore{}, &fakeWriter{}, emitter)
	defer queue.Drain()

	d.Dispatch(context.Background(), []ToolCall{{ID: "c1", Name: ToolEndSession}})

	if emitter.endCalls != 1 {
		t.Fatalf("expected one end-call request, got %d", emitter.endCalls)
	}
	if emitter.outputs[0].Output != "Session ending, say your goodbyes." {
		t.Fatalf("unexpected ack: %q", emitter.outputs[0].Output)
	}
}

func TestBusyFlagSetDuringDispatch(t *testing.T) {
	emitter := &fakeEmitter{}
	store := &fakeStore{submitOK: true}
	queue := jobs.New(nil)
	defer queue.Drain()

	var d *Dispatcher
	observed := make(chan bool, 1)
	blocking := &busyProbeStore{inner: store, probe: func() { observed <- d.Busy() }}
	d = NewDispatcher(blocking, &fakeWriter{}, queue, emitter, nil, func() string { return "rec-1" })

	d.Dispatch(context.Background(), []ToolCall{
		{ID: "c1", Name: ToolSubmitAssessment, Arguments: rawArgs(t, map[string]any{"recordId": "rec-1"})},
	})

	if got := <-observed; !got {
		t.Fatalf("expected Busy() true while a tool call runs")
	}
	if d.Busy() {
		t.Fatalf("expected Busy() false after the batch completes")
	}
}

type busyProbeStore struct {
	inner *fakeStore
	probe func()
}

func (b *busyProbeStore) ApplyUpdate(ctx context.Context, update review.Update) (review.Record, error) {
	return b.inner.ApplyUpdate(ctx, update)
}

func (b *busyProbeStore) Submit(ctx context.Context, recordID string) bool {
	b.probe()
	return b.inner.Submit(ctx, recordID)
}
