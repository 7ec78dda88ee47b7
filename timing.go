package tilemap

import (
	"time"

	"github.com/gogpu/tilemap/gfx"
)

// GPUTimerRecord accumulates the GPU cost of one layer over a
// collection epoch: how many times the layer was drawn, the CPU time
// spent issuing its draws, and the pending timer query measuring the
// GPU side. Query results are not available in the frame they were
// issued; resolve records with ResolveGPUTimers once Ready.
type GPUTimerRecord struct {
	Calls   int
	CPUTime time.Duration
	Query   gfx.TimerQuery
}

// gpuTimers measures per-layer GPU cost via asynchronous timer queries.
// When the context has no timer-query support every operation is a
// silent no-op; timing is a feature-detected instrument, never an
// error source.
type gpuTimers struct {
	ctx     gfx.Context
	enabled bool

	records map[string]*GPUTimerRecord

	// Bracket state for the currently timed layer.
	active      gfx.TimerQuery
	activeStart time.Time
	activeID    string
}

func newGPUTimers(ctx gfx.Context, enabled bool) *gpuTimers {
	return &gpuTimers{
		ctx:     ctx,
		enabled: enabled,
		records: make(map[string]*GPUTimerRecord),
	}
}

// start opens the timing bracket for a layer, lazily creating its
// record and issuing an elapsed-time query. A second start without an
// intervening stop closes the previous bracket first.
func (t *gpuTimers) start(layerID string) {
	if !t.enabled {
		return
	}
	if t.active != nil {
		t.stop()
	}

	rec := t.records[layerID]
	if rec == nil {
		query, ok := t.ctx.CreateTimerQuery()
		if !ok {
			// No timer extension: disable for the rest of the epoch so
			// feature detection happens once, not per draw.
			t.enabled = false
			Logger().Warn("gpu timer queries unavailable, timing disabled")
			return
		}
		rec = &GPUTimerRecord{Query: query}
		t.records[layerID] = rec
	}

	rec.Calls++
	t.active = rec.Query
	t.activeID = layerID
	t.activeStart = time.Now()
	t.active.Begin()
}

// stop ends the currently open bracket, if any, and charges the CPU
// time to the layer's record.
func (t *gpuTimers) stop() {
	if t.active == nil {
		return
	}
	t.active.End()
	if rec := t.records[t.activeID]; rec != nil {
		rec.CPUTime += time.Since(t.activeStart)
	}
	t.active = nil
	t.activeID = ""
}

// collect hands off the accumulated records and resets the collector to
// empty. Ownership of the queries moves to the caller, who resolves
// them later once the GPU has produced results.
func (t *gpuTimers) collect() map[string]*GPUTimerRecord {
	out := t.records
	t.records = make(map[string]*GPUTimerRecord)
	t.active = nil
	t.activeID = ""
	return out
}

// CollectGPUTimers returns the per-layer timing records accumulated
// since the last collection and resets the collector. Returns nil when
// timing was not enabled. Resolve the records with ResolveGPUTimers
// after at least one frame has passed.
func (r *Renderer) CollectGPUTimers() map[string]*GPUTimerRecord {
	if r.timers == nil {
		return nil
	}
	recs := r.timers.collect()
	if len(recs) == 0 {
		return nil
	}
	return recs
}

// ResolveGPUTimers reads back and releases the queries of a collected
// record set, returning the measured GPU time per layer id. Readback is
// polled, never blocking: a query whose result is not yet available is
// left in records untouched, and the caller resolves again on a later
// frame. Resolved entries are removed from records and their queries
// destroyed, so records is empty once every result has landed.
func ResolveGPUTimers(records map[string]*GPUTimerRecord) map[string]time.Duration {
	out := make(map[string]time.Duration, len(records))
	for layerID, rec := range records {
		if rec.Query == nil {
			delete(records, layerID)
			continue
		}
		if !rec.Query.Ready() {
			continue
		}
		out[layerID] = rec.Query.Elapsed()
		rec.Query.Destroy()
		rec.Query = nil
		delete(records, layerID)
	}
	return out
}
