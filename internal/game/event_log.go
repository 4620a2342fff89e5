package game

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	EventBufferSize      = 1024                   // Circular buffer size
	MaxEventsPerSec      = 10000                  // Global rate limit
	MaxEventsPerEntity   = 100                    // Per-entity rate limit per second
	BatchFlushSize       = 64                     // Events per batch write
	BatchFlushInterval   = 100 * time.Millisecond // How often to flush
	EntityLimiterCleanup = 5 * time.Minute        // Idle time before an entity limiter is dropped
)

// EventLog provides bounded, rate-limited event logging with backpressure.
// Events are appended to a sink as newline-delimited JSON.
type EventLog struct {
	// Circular buffer: Emit is called from the tick goroutine only, the
	// writer loop is the single consumer.
	buffer    [EventBufferSize]Event
	writeHead uint64 // atomic
	readHead  uint64 // atomic

	globalLimiter  *rate.Limiter
	entityLimiters sync.Map // map[string]*entityLimiterEntry

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	sinkMu sync.Mutex
	sink   io.WriteCloser
	out    *bufio.Writer

	droppedCount    uint64 // atomic
	totalCount      uint64 // atomic
	writeErrorCount uint64 // atomic
}

type entityLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // unix nano
}

// EventLogStats is a point-in-time view of the log counters.
type EventLogStats struct {
	Total       uint64 `json:"total"`
	Dropped     uint64 `json:"dropped"`
	Pending     uint64 `json:"pending"`
	WriteErrors uint64 `json:"writeErrors"`
	Running     bool   `json:"running"`
}

// NewEventLog creates a new bounded event log
func NewEventLog() *EventLog {
	return &EventLog{
		globalLimiter: rate.NewLimiter(MaxEventsPerSec, MaxEventsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start opens filePath for append and begins the writer. An empty path keeps
// events in memory only.
func (el *EventLog) Start(filePath string) error {
	if filePath == "" {
		return el.StartWriter(nil)
	}

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	return el.StartWriter(f)
}

// StartWriter begins the writer goroutines with sink as output. The log
// closes sink on Stop.
func (el *EventLog) StartWriter(sink io.WriteCloser) error {
	if !el.running.CompareAndSwap(false, true) {
		return nil
	}

	if sink != nil {
		el.sink = sink
		el.out = bufio.NewWriter(sink)
	}

	el.wg.Add(2)
	go el.writerLoop()
	go el.cleanupLoop()
	return nil
}

// Stop flushes what is buffered and shuts the log down.
func (el *EventLog) Stop() {
	el.stopOnce.Do(func() {
		el.running.Store(false)
		close(el.stopChan)
		el.wg.Wait()

		el.sinkMu.Lock()
		if el.sink != nil {
			el.sink.Close()
		}
		el.sinkMu.Unlock()
	})
}

// Emit adds an event with rate limiting.
// Returns false if the log is stopped or the event was rate limited.
func (el *EventLog) Emit(event Event) bool {
	if !el.running.Load() {
		return false
	}

	if !el.globalLimiter.Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	if event.EntityID != "" && !el.entityLimiter(event.EntityID).Allow() {
		atomic.AddUint64(&el.droppedCount, 1)
		return false
	}

	head := atomic.AddUint64(&el.writeHead, 1)
	tail := atomic.LoadUint64(&el.readHead)

	// Full: drop the oldest event
	if head-tail >= EventBufferSize {
		atomic.AddUint64(&el.readHead, 1)
		atomic.AddUint64(&el.droppedCount, 1)
	}

	event.Sequence = head
	el.buffer[head%EventBufferSize] = event

	atomic.AddUint64(&el.totalCount, 1)
	return true
}

// EmitSimple builds an event and emits it
func (el *EventLog) EmitSimple(eventType EventType, tickNum uint64, entityID string, payload interface{}) bool {
	return el.Emit(NewEvent(eventType, tickNum, entityID, payload))
}

func (el *EventLog) entityLimiter(entityID string) *rate.Limiter {
	now := time.Now().UnixNano()
	if v, ok := el.entityLimiters.Load(entityID); ok {
		entry := v.(*entityLimiterEntry)
		entry.lastUsed.Store(now)
		return entry.limiter
	}

	entry := &entityLimiterEntry{
		limiter: rate.NewLimiter(MaxEventsPerEntity, MaxEventsPerEntity/10),
	}
	entry.lastUsed.Store(now)
	actual, _ := el.entityLimiters.LoadOrStore(entityID, entry)
	return actual.(*entityLimiterEntry).limiter
}

func (el *EventLog) writerLoop() {
	defer el.wg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, BatchFlushSize)
	for {
		select {
		case <-el.stopChan:
			// Drain everything left, not just one batch
			for {
				batch = el.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				el.flushBatch(batch)
			}
		case <-ticker.C:
			batch = el.collectBatch(batch[:0])
			if len(batch) > 0 {
				el.flushBatch(batch)
			}
		}
	}
}

func (el *EventLog) cleanupLoop() {
	defer el.wg.Done()

	ticker := time.NewTicker(EntityLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-el.stopChan:
			return
		case <-ticker.C:
			el.cleanupEntityLimiters(time.Now().Add(-EntityLimiterCleanup))
		}
	}
}

// cleanupEntityLimiters drops limiters idle since before cutoff
func (el *EventLog) cleanupEntityLimiters(cutoff time.Time) {
	limit := cutoff.UnixNano()
	el.entityLimiters.Range(func(key, value interface{}) bool {
		if value.(*entityLimiterEntry).lastUsed.Load() < limit {
			el.entityLimiters.Delete(key)
		}
		return true
	})
}

func (el *EventLog) collectBatch(batch []Event) []Event {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	// Sequences start at 1, so slot i holds sequence i+1
	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		batch = append(batch, el.buffer[(i+1)%EventBufferSize])
	}

	if len(batch) > 0 {
		atomic.AddUint64(&el.readHead, uint64(len(batch)))
	}
	return batch
}

func (el *EventLog) flushBatch(batch []Event) {
	el.sinkMu.Lock()
	defer el.sinkMu.Unlock()

	if el.out == nil {
		return
	}

	enc := json.NewEncoder(el.out)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			atomic.AddUint64(&el.writeErrorCount, 1)
		}
	}
	if err := el.out.Flush(); err != nil {
		atomic.AddUint64(&el.writeErrorCount, 1)
	}
}

// Stats returns the current counters
func (el *EventLog) Stats() EventLogStats {
	head := atomic.LoadUint64(&el.writeHead)
	tail := atomic.LoadUint64(&el.readHead)

	return EventLogStats{
		Total:       atomic.LoadUint64(&el.totalCount),
		Dropped:     atomic.LoadUint64(&el.droppedCount),
		Pending:     head - tail,
		WriteErrors: atomic.LoadUint64(&el.writeErrorCount),
		Running:     el.running.Load(),
	}
}
