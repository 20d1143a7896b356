// Package queue implements the Priority Message Queue (§4.H): a bounded,
// priority-preserving queue with eviction rules, retry tracking and
// optional persistence.
package queue

import (
	"sort"
	"sync"

	"github.com/painlessmesh/gomesh/pkg/mesh/types"
)

// DefaultCapacity is the queue's default bound (§4.H).
const DefaultCapacity = 500

// DefaultMaxAttempts is how many flush attempts a message gets before it's
// dropped regardless of priority.
const DefaultMaxAttempts = 3

// Queue is a bounded, priority-ordered queue of QueuedMessage.
type Queue struct {
	mutex sync.Mutex

	capacity    int
	maxAttempts uint32

	messages map[uint64]*types.QueuedMessage
	nextId   uint64

	stats types.QueueStats

	metrics types.Metrics
	storage types.Storage
	persist bool

	onStateChanged func(state types.QueueState, count int)
	lastState      types.QueueState
}

// New builds a Queue with DefaultCapacity and DefaultMaxAttempts.
func New(metrics types.Metrics) *Queue {
	if metrics == nil {
		metrics = types.NopMetrics{}
	}
	return &Queue{
		capacity:    DefaultCapacity,
		maxAttempts: DefaultMaxAttempts,
		messages:    make(map[uint64]*types.QueuedMessage),
		metrics:     metrics,
		lastState:   types.QueueEmpty,
	}
}

// SetCapacity configures the bound. Rejects a non-positive value.
func (q *Queue) SetCapacity(n int) error {
	if n <= 0 {
		return types.ErrInvalidValue
	}
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.capacity = n
	return nil
}

// SetMaxAttempts configures the flush retry bound.
func (q *Queue) SetMaxAttempts(n uint32) error {
	if n == 0 {
		return types.ErrInvalidValue
	}
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.maxAttempts = n
	return nil
}

// OnQueueStateChanged registers the callback fired whenever the queue
// crosses a fullness bucket boundary (§4.H).
func (q *Queue) OnQueueStateChanged(cb func(state types.QueueState, count int)) {
	q.onStateChanged = cb
}

// EnablePersistence loads any previously saved blob from storage and
// arranges for future mutations to request a save (see requestSaveLocked).
func (q *Queue) EnablePersistence(storage types.Storage) error {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.storage = storage
	q.persist = true

	blob, err := storage.Load()
	if err != nil {
		return err
	}
	records, _ := Decode(blob)
	var maxId uint64
	for _, r := range records {
		m := r
		q.messages[m.Id] = &m
		if m.Id > maxId {
			maxId = m.Id
		}
	}
	if maxId >= q.nextId {
		q.nextId = maxId + 1
	}
	return nil
}

// QueueMessage enqueues payload for destination at priority, returning its
// assigned id. Implements the §4.H eviction policy when the queue is full.
func (q *Queue) QueueMessage(payload []byte, destination string, priority types.Priority, nowMs uint64) (uint64, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if len(q.messages) >= q.capacity {
		if !q.evictVictim(priority) {
			q.stats.TotalDropped++
			q.stats.PerPriorityDropped[priority]++
			q.metrics.IncQueueDropped(priority)
			return 0, types.ErrSaturated
		}
	}

	q.nextId++
	id := q.nextId
	msg := &types.QueuedMessage{
		Id:           id,
		Priority:     priority,
		EnqueuedAtMs: nowMs,
		Payload:      append([]byte(nil), payload...),
		Destination:  destination,
	}
	q.messages[id] = msg
	q.stats.TotalQueued++

	q.afterMutation()
	q.requestSaveLocked()
	return id, nil
}

// evictVictim implements the §4.H victim search: Low -> Normal -> High,
// oldest message of that class first. Critical is never a victim.
func (q *Queue) evictVictim(incoming types.Priority) bool {
	for _, class := range []types.Priority{types.Low, types.Normal, types.High} {
		var victim *types.QueuedMessage
		for _, m := range q.messages {
			if m.Priority != class {
				continue
			}
			if victim == nil || m.EnqueuedAtMs < victim.EnqueuedAtMs || (m.EnqueuedAtMs == victim.EnqueuedAtMs && m.Id < victim.Id) {
				victim = m
			}
		}
		if victim != nil {
			delete(q.messages, victim.Id)
			q.stats.TotalDropped++
			q.stats.PerPriorityDropped[victim.Priority]++
			q.metrics.IncQueueDropped(victim.Priority)
			return true
		}
	}
	_ = incoming
	return false
}

// SendFunc attempts to deliver one message, returning nil on success.
type SendFunc func(types.QueuedMessage) error

// FlushQueue iterates messages in priority order (lower id first within a
// priority class): on success removes the message; on failure increments
// Attempts and removes it once Attempts >= maxAttempts. Returns the number
// of messages successfully sent.
func (q *Queue) FlushQueue(send SendFunc) int {
	q.mutex.Lock()
	ordered := q.orderedLocked()
	q.mutex.Unlock()

	sent := 0
	for _, msg := range ordered {
		err := send(*msg)

		q.mutex.Lock()
		current, ok := q.messages[msg.Id]
		if !ok {
			q.mutex.Unlock()
			continue
		}
		if err == nil {
			delete(q.messages, msg.Id)
			q.stats.TotalSent++
			sent++
			q.afterMutation()
			q.requestSaveLocked()
			q.mutex.Unlock()
			continue
		}

		current.Attempts++
		if current.Attempts >= q.maxAttempts {
			delete(q.messages, current.Id)
			q.stats.TotalDropped++
			q.stats.PerPriorityDropped[current.Priority]++
			q.metrics.IncQueueDropped(current.Priority)
		}
		q.afterMutation()
		q.requestSaveLocked()
		q.mutex.Unlock()
	}
	return sent
}

// orderedLocked returns every message sorted by (priority asc, id asc) —
// I5's priority-monotone flush order. Caller holds q.mutex.
func (q *Queue) orderedLocked() []*types.QueuedMessage {
	out := make([]*types.QueuedMessage, 0, len(q.messages))
	for _, m := range q.messages {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Id < out[j].Id
	})
	return out
}

// PruneByAge removes every message older than maxAgeMs.
func (q *Queue) PruneByAge(maxAgeMs uint64, nowMs uint64) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for id, m := range q.messages {
		if nowMs >= m.EnqueuedAtMs+maxAgeMs {
			delete(q.messages, id)
			q.stats.TotalDropped++
			q.stats.PerPriorityDropped[m.Priority]++
			q.metrics.IncQueueDropped(m.Priority)
		}
	}
	q.afterMutation()
	q.requestSaveLocked()
}

// Clear empties the queue without affecting cumulative stats.
func (q *Queue) Clear() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.messages = make(map[uint64]*types.QueuedMessage)
	q.afterMutation()
	q.requestSaveLocked()
}

// Stats returns a copy of the cumulative counters.
func (q *Queue) Stats() types.QueueStats {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.stats
}

// Len returns the current number of queued messages.
func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.messages)
}

// afterMutation recomputes the fullness bucket and fires
// onQueueStateChanged if it changed. Caller holds q.mutex.
func (q *Queue) afterMutation() {
	count := len(q.messages)
	for p := types.Critical; p <= types.Low; p++ {
		depth := 0
		for _, m := range q.messages {
			if m.Priority == p {
				depth++
			}
		}
		q.metrics.SetQueueDepth(p, depth)
	}

	state := bucketFor(count, q.capacity)
	if state != q.lastState {
		q.lastState = state
		if q.onStateChanged != nil {
			invokeSafely(func() { q.onStateChanged(state, count) })
		}
	}
}

// invokeSafely runs a callback, swallowing a panic per §7's "callbacks must
// not throw/panic" policy (failures are logged and swallowed, not crashed
// on).
func invokeSafely(fn func()) {
	defer func() { recover() }()
	fn()
}

func bucketFor(count, capacity int) types.QueueState {
	switch {
	case count == 0:
		return types.QueueEmpty
	case count >= capacity:
		return types.QueueFull
	case float64(count) >= 0.75*float64(capacity):
		return types.QueueSeventyFivePercent
	default:
		return types.QueueNormal
	}
}

// requestSaveLocked persists the current contents if persistence is
// enabled. Caller holds q.mutex.
func (q *Queue) requestSaveLocked() {
	if !q.persist || q.storage == nil {
		return
	}
	records := make([]types.QueuedMessage, 0, len(q.messages))
	for _, m := range q.messages {
		records = append(records, *m)
	}
	blob := Encode(records)
	_ = q.storage.Save(blob)
}
