// Package session holds the authoritative in-memory review record for each
// active call: read-through fetch from the HR backend, optimistic updates
// through the reconciliation engine, a FIFO submission queue, and a Postgres
// mirror so a session can recover its state.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reviewcall/internal/domain/review"
	"reviewcall/internal/platform/backend"
	"reviewcall/internal/platform/metrics"
)

// Params collects the dependencies a Cache needs; everything is injected,
// nothing is package-global.
type Params struct {
	SessionID    string
	EmployeeID   string
	EmployeeName string
	ManagerID    string
	ManagerName  string
	View         string
	Competencies []string
	Backend      backend.API
	Store        StoreAPI
	Metrics      *metrics.Collector
	TTL          time.Duration
	Now          func() time.Time
}

type Cache struct {
	params Params

	mu        sync.Mutex
	record    *review.Record
	sources   []review.SourceObjective
	fetchedAt time.Time
	subs      []func(sessionID string)

	submitCh   chan submitRequest
	submitOnce sync.Once
	closeOnce  sync.Once
	closed     chan struct{}
}

// Close stops the submit worker. The cache is not usable afterwards.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

type submitRequest struct {
	ctx      context.Context
	recordID string
	reply    chan bool
}

func NewCache(params Params) *Cache {
	if params.TTL <= 0 {
		params.TTL = 30 * time.Second
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	if params.View == "" {
		params.View = backend.ViewEmployee
	}
	return &Cache{
		params:   params,
		submitCh: make(chan submitRequest, 16),
		closed:   make(chan struct{}),
	}
}

// Subscribe registers an observer called after every successful mutation.
// This is the only cross-view invalidation signal; interested views reread
// the cache in response.
func (c *Cache) Subscribe(fn func(sessionID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

func (c *Cache) notify() {
	c.mu.Lock()
	subs := make([]func(string), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(c.params.SessionID)
	}
}

// Fetch returns the current record and source objectives, reusing cached
// data inside the freshness window unless forced. On backend failure it
// falls back to the cached copy, then to the persisted mirror.
func (c *Cache) Fetch(ctx context.Context, force bool) (review.Record, []review.SourceObjective, error) {
	c.mu.Lock()
	fresh := c.record != nil && c.params.Now().Sub(c.fetchedAt) < c.params.TTL
	if fresh && !force {
		record := c.record.Clone()
		sources := append([]review.SourceObjective(nil), c.sources...)
		c.mu.Unlock()
		return record, sources, nil
	}
	c.mu.Unlock()

	sources, err := c.params.Backend.FetchObjectives(ctx, c.params.EmployeeID)
	if err != nil {
		c.mu.Lock()
		sources = append([]review.SourceObjective(nil), c.sources...)
		c.mu.Unlock()
	}

	// Once a session record exists it is authoritative: tool-call mutations
	// accumulate in it and must survive every refetch. A lapsed freshness
	// window (or a forced fetch) only refreshes source-derived progress.
	c.mu.Lock()
	if c.record != nil {
		merged := review.SyncProgress(c.record.Clone(), sources)
		c.record = &merged
		c.sources = sources
		c.fetchedAt = c.params.Now()
		record := merged.Clone()
		c.mu.Unlock()
		c.persist(ctx)
		return record, sources, nil
	}
	c.mu.Unlock()

	record, found, err := c.params.Backend.FetchReviewForm(ctx, c.params.View, c.params.EmployeeID)
	if err != nil {
		if cached, ok := c.cachedOrPersisted(ctx); ok {
			return cached, sources, nil
		}
		return review.Record{}, nil, err
	}
	if !found {
		record = c.synthesize(sources)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record = review.SyncProgress(record, sources)

	c.mu.Lock()
	c.record = &record
	c.sources = sources
	c.fetchedAt = c.params.Now()
	c.mu.Unlock()

	c.persist(ctx)
	return record.Clone(), sources, nil
}

// synthesize builds a fresh record from source objectives when the backend
// has none for this employee yet.
func (c *Cache) synthesize(sources []review.SourceObjective) review.Record {
	record := review.Record{
		ID:           uuid.NewString(),
		EmployeeID:   c.params.EmployeeID,
		EmployeeName: c.params.EmployeeName,
		ManagerID:    c.params.ManagerID,
		ManagerName:  c.params.ManagerName,
		Goals:        review.BootstrapGoals(sources),
		Competencies: review.BootstrapCompetencies(c.params.Competencies),
		CreatedAt:    c.params.Now().UTC(),
	}
	review.Recompute(&record)
	return record
}

func (c *Cache) cachedOrPersisted(ctx context.Context) (review.Record, bool) {
	c.mu.Lock()
	if c.record != nil {
		record := c.record.Clone()
		c.mu.Unlock()
		return record, true
	}
	c.mu.Unlock()

	payload, ok, err := c.params.Store.LoadState(ctx, c.params.SessionID, StateKeyRecord)
	if err != nil || !ok {
		return review.Record{}, false
	}
	var record review.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		slog.Warn("persisted record decode failed", "sessionId", c.params.SessionID, "err", err)
		return review.Record{}, false
	}

	c.mu.Lock()
	c.record = &record
	c.fetchedAt = c.params.Now()
	c.mu.Unlock()
	return record.Clone(), true
}

// ApplyUpdate is the optimistic-write path: reconcile into the cached record
// and notify observers before any network confirmation happens.
func (c *Cache) ApplyUpdate(ctx context.Context, update review.Update) (review.Record, error) {
	current, sources, err := c.Fetch(ctx, false)
	if err != nil {
		return review.Record{}, err
	}

	next := review.Apply(current, update, sources, c.params.Competencies)
	c.params.Metrics.Reconciliation()

	c.mu.Lock()
	c.record = &next
	c.mu.Unlock()

	c.persist(ctx)
	c.notify()
	return next.Clone(), nil
}

// Record returns the cached record without forcing a refetch.
func (c *Cache) Record(ctx context.Context) (review.Record, error) {
	record, _, err := c.Fetch(ctx, false)
	return record, err
}

// CachedRecordID returns the cached record's id without fetching, or empty
// when nothing is cached yet.
func (c *Cache) CachedRecordID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return ""
	}
	return c.record.ID
}

func (c *Cache) Sources() []review.SourceObjective {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]review.SourceObjective(nil), c.sources...)
}

func (c *Cache) persist(ctx context.Context) {
	c.mu.Lock()
	var recordJSON, sourcesJSON []byte
	var err error
	if c.record != nil {
		recordJSON, err = json.Marshal(c.record)
		if err != nil {
			slog.Warn("record marshal failed", "sessionId", c.params.SessionID, "err", err)
		}
	}
	sourcesJSON, err = json.Marshal(c.sources)
	if err != nil {
		slog.Warn("sources marshal failed", "sessionId", c.params.SessionID, "err", err)
	}
	c.mu.Unlock()

	if recordJSON != nil {
		if err := c.params.Store.SaveState(ctx, c.params.SessionID, StateKeyRecord, recordJSON); err != nil {
			slog.Warn("record persist failed", "sessionId", c.params.SessionID, "err", err)
		}
	}
	if sourcesJSON != nil {
		if err := c.params.Store.SaveState(ctx, c.params.SessionID, StateKeySources, sourcesJSON); err != nil {
			slog.Warn("sources persist failed", "sessionId", c.params.SessionID, "err", err)
		}
	}
}

// Clear drops the in-memory state and the persisted mirror. Called at call
// end.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.record = nil
	c.sources = nil
	c.fetchedAt = time.Time{}
	c.mu.Unlock()

	if err := c.params.Store.ClearState(ctx, c.params.SessionID); err != nil {
		slog.Warn("session state clear failed", "sessionId", c.params.SessionID, "err", err)
	}
}

// Submit pushes the reconciled record to the HR backend. All submissions for
// this session go through one FIFO worker so two finalize operations can
// never interleave partial states. Returns true on confirmed persistence.
func (c *Cache) Submit(ctx context.Context, recordID string) bool {
	c.submitOnce.Do(func() { go c.submitWorker() })

	reply := make(chan bool, 1)
	select {
	case c.submitCh <- submitRequest{ctx: ctx, recordID: recordID, reply: reply}:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

func (c *Cache) submitWorker() {
	for {
		select {
		case <-c.closed:
			return
		case req := <-c.submitCh:
			req.reply <- c.submit(req.ctx, req.recordID)
		}
	}
}

func (c *Cache) submit(ctx context.Context, recordID string) bool {
	target, ok := c.resolveTarget(ctx, recordID)
	if !ok {
		c.params.Metrics.Submission("unresolved")
		return false
	}

	// Recompute through the engine so derived fields are consistent at the
	// moment of submission.
	review.Recompute(&target)
	payload := review.ToSubmitPayload(target)

	updated := false
	if target.ID != "" {
		if err := c.params.Backend.UpdateRecord(ctx, target.ID, payload); err != nil {
			slog.Warn("record update rejected, falling back to create", "recordId", target.ID, "err", err)
		} else {
			updated = true
		}
	}
	if !updated {
		createdID, err := c.params.Backend.CreateRecord(ctx, payload)
		if err != nil {
			slog.Warn("record create failed", "sessionId", c.params.SessionID, "err", err)
			c.params.Metrics.Submission("failed")
			return false
		}
		if createdID != "" {
			target.ID = createdID
		}
	}

	// Re-run the optimistic path so cache and confirmed server state agree,
	// and re-broadcast.
	c.mu.Lock()
	c.record = &target
	c.fetchedAt = c.params.Now()
	c.mu.Unlock()
	c.persist(ctx)
	c.notify()

	c.params.Metrics.Submission("ok")
	return true
}

// resolveTarget finds the record a submission should land on: explicit id,
// then employee-name substring, then employee id, then the most recently
// created record as last resort. Best effort; never errors.
func (c *Cache) resolveTarget(ctx context.Context, recordID string) (review.Record, bool) {
	candidates, err := c.params.Backend.ListRecords(ctx)
	if err != nil || len(candidates) == 0 {
		if cached, ok := c.cachedOrPersisted(ctx); ok {
			candidates = []review.Record{cached}
		}
	}

	cached, hasCached := c.cachedOrPersisted(ctx)

	var remote *review.Record
	if recordID != "" {
		for i := range candidates {
			if candidates[i].ID == recordID {
				remote = &candidates[i]
				break
			}
		}
	}
	if remote == nil && c.params.EmployeeName != "" {
		needle := strings.ToLower(c.params.EmployeeName)
		for i := range candidates {
			if strings.Contains(strings.ToLower(candidates[i].EmployeeName), needle) {
				remote = &candidates[i]
				break
			}
		}
	}
	if remote == nil && c.params.EmployeeID != "" {
		for i := range candidates {
			if candidates[i].EmployeeID == c.params.EmployeeID {
				remote = &candidates[i]
				break
			}
		}
	}
	if remote == nil && len(candidates) > 0 {
		sorted := append([]review.Record(nil), candidates...)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		})
		remote = &sorted[0]
	}

	if remote == nil {
		if hasCached {
			return cached, true
		}
		return review.Record{}, false
	}

	// The cached record carries the session's ratings and comments; the
	// remote candidate supplies the canonical identity to submit under.
	if hasCached {
		merged := cached
		merged.ID = remote.ID
		if merged.EmployeeID == "" {
			merged.EmployeeID = remote.EmployeeID
		}
		if merged.EmployeeName == "" {
			merged.EmployeeName = remote.EmployeeName
		}
		return merged, true
	}
	return remote.Clone(), true
}
