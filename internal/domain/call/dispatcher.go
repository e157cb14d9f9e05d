package call

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"reviewcall/internal/domain/review"
	"reviewcall/internal/platform/jobs"
	"reviewcall/internal/platform/metrics"
)

// Tool names the facilitator may invoke.
const (
	ToolUpdateProgress     = "update_progress"
	ToolUpdateAssessment   = "update_assessment"
	ToolSubmitAssessment   = "submit_assessment"
	ToolSubmitCompetencies = "submit_competencies"
	ToolEndSession         = "end_session"
)

// ReviewStore is the slice of the session cache the dispatcher needs.
type ReviewStore interface {
	ApplyUpdate(ctx context.Context, update review.Update) (review.Record, error)
	Submit(ctx context.Context, recordID string) bool
}

// KeyResultWriter persists a key result's actual value to the HR backend.
type KeyResultWriter interface {
	UpdateKeyResultActual(ctx context.Context, keyResultID string, actual float64) error
}

// Dispatcher executes tool-call batches strictly in request order, one call
// at a time. Mutations ack success immediately and persist in the
// background; finalize operations block and ack the real outcome.
type Dispatcher struct {
	store    ReviewStore
	writer   KeyResultWriter
	queue    *jobs.Queue
	emitter  Emitter
	metrics  *metrics.Collector
	recordID func() string
	busy     atomic.Bool
}

func NewDispatcher(store ReviewStore, writer KeyResultWriter, queue *jobs.Queue, emitter Emitter, collector *metrics.Collector, recordID func() string) *Dispatcher {
	return &Dispatcher{
		store:    store,
		writer:   writer,
		queue:    queue,
		emitter:  emitter,
		metrics:  collector,
		recordID: recordID,
	}
}

// Busy reports whether a dispatch loop is currently running. The silence
// monitor uses this to hold its timer while updates are in flight.
func (d *Dispatcher) Busy() bool {
	return d.busy.Load()
}

// Dispatch runs one batch. A single loop is active at a time per session;
// the engine serializes calls into it.
func (d *Dispatcher) Dispatch(ctx context.Context, calls []ToolCall) {
	d.busy.Store(true)
	defer d.busy.Store(false)
	started := time.Now()
	defer func() { d.metrics.DispatchDuration(time.Since(started)) }()

	for _, tc := range calls {
		output := d.execute(ctx, tc)
		d.emitter.EmitToolOutput(ToolOutput{ToolCallID: tc.ID, Output: output})
	}
}

func (d *Dispatcher) execute(ctx context.Context, tc ToolCall) (output string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("tool call panicked", "tool", tc.Name, "recovered", r)
			d.metrics.ToolCall(tc.Name, "error")
			d.emitter.Notify("error", fmt.Sprintf("The %s update could not be applied.", tc.Name))
			output = fmt.Sprintf("Error executing %s, please continue the conversation.", tc.Name)
		}
	}()

	switch tc.Name {
	case ToolUpdateProgress:
		return d.updateProgress(ctx, tc)
	case ToolUpdateAssessment:
		return d.updateAssessment(ctx, tc)
	case ToolSubmitAssessment:
		return d.submit(ctx, tc, "assessment")
	case ToolSubmitCompetencies:
		return d.submit(ctx, tc, "competencies")
	case ToolEndSession:
		d.metrics.ToolCall(tc.Name, "ok")
		d.emitter.RequestEndCall()
		return "Session ending, say your goodbyes."
	default:
		d.metrics.ToolCall(tc.Name, "unknown")
		return fmt.Sprintf("Unknown tool %s.", tc.Name)
	}
}

// updateProgress is fire-and-forget: the optimistic cache update and the
// synthetic ack happen now, the backend write happens on the record's
// background lane. A background failure is logged and surfaced as a notice,
// never re-acked; the facilitator has already moved on.
func (d *Dispatcher) updateProgress(ctx context.Context, tc ToolCall) string {
	args := tc.Args()
	update := review.Update{
		Role:     stringArg(args, "role"),
		ItemType: review.ItemKeyResult,
		ItemID:   stringArg(args, "keyResultId"),
		ItemName: stringArg(args, "keyResultName"),
	}
	actual, ok := floatArg(args, "actual")
	if !ok {
		d.metrics.ToolCall(tc.Name, "error")
		return "Missing actual value for the progress update."
	}
	update.Actual = &actual

	record, err := d.store.ApplyUpdate(ctx, update)
	if err != nil {
		slog.Warn("optimistic progress update failed", "err", err)
	}

	keyResultID := update.ItemID
	if keyResultID == "" && err == nil {
		keyResultID = resolveKeyResultID(record, update.ItemName)
	}
	switch {
	case keyResultID == "":
		slog.Warn("progress update has no resolvable key result, backend write skipped",
			"keyResultName", update.ItemName)
	case d.writer != nil:
		d.queue.Enqueue(d.recordID(), ToolUpdateProgress, func(bg context.Context) error {
			return d.writer.UpdateKeyResultActual(bg, keyResultID, actual)
		})
	}

	d.metrics.ToolCall(tc.Name, "ok")
	return "Progress recorded."
}

// updateAssessment covers objective/key-result/competency ratings and
// comments plus the free-text summary fields. Also fire-and-forget.
func (d *Dispatcher) updateAssessment(ctx context.Context, tc ToolCall) string {
	args := tc.Args()
	update := review.Update{
		Role:     stringArg(args, "role"),
		ItemType: stringArg(args, "itemType"),
		ItemID:   stringArg(args, "itemId"),
		ItemName: stringArg(args, "itemName"),
		Value:    stringArg(args, "value"),
	}
	if update.ItemType == "" {
		d.metrics.ToolCall(tc.Name, "error")
		return "Missing item type for the assessment update."
	}
	if rating, ok := floatArg(args, "rating"); ok {
		update.Rating = &rating
	}
	if comment := stringArg(args, "comment"); comment != "" {
		update.Comment = &comment
	}

	if _, err := d.store.ApplyUpdate(ctx, update); err != nil {
		slog.Warn("optimistic assessment update failed", "err", err)
		d.emitter.Notify("warning", "The last update could not be saved locally.")
	}

	d.metrics.ToolCall(tc.Name, "ok")
	return "Assessment recorded."
}

// submit is blocking: the facilitator waits for the real result.
func (d *Dispatcher) submit(ctx context.Context, tc ToolCall, what string) string {
	recordID := stringArg(tc.Args(), "recordId")
	if d.store.Submit(ctx, recordID) {
		d.metrics.ToolCall(tc.Name, "ok")
		return fmt.Sprintf("The %s has been submitted successfully.", what)
	}
	d.metrics.ToolCall(tc.Name, "error")
	d.emitter.Notify("error", fmt.Sprintf("Submitting the %s failed.", what))
	return fmt.Sprintf("Submitting the %s failed, we can retry in a moment.", what)
}

func resolveKeyResultID(record review.Record, name string) string {
	want := review.NormalizeName(name)
	if want == "" {
		return ""
	}
	for _, goal := range record.Goals {
		for _, kr := range goal.KeyResults {
			if review.NormalizeName(kr.Name) == want {
				return kr.ID
			}
		}
	}
	return ""
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		var parsed float64
		if _, err := fmt.Sscanf(v, "%g", &parsed); err == nil {
			return parsed, true
		}
	}
	return 0, false
}
