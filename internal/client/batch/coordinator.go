// Package batch tracks sets of concurrently in-flight per-file upload
// operations and signals completion of the whole set exactly once.
package batch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ItemStatus is the lifecycle state of a single file in a batch.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusEncrypting ItemStatus = "encrypting"
	StatusUploading  ItemStatus = "uploading"
	StatusCompleted  ItemStatus = "completed"
	StatusFailed     ItemStatus = "failed"
)

// statusRank orders statuses so that transitions stay monotonic: an item
// never regresses, and out-of-order or duplicate reports are no-ops.
var statusRank = map[ItemStatus]int{
	StatusPending:    0,
	StatusEncrypting: 1,
	StatusUploading:  2,
	StatusCompleted:  3,
	StatusFailed:     3,
}

// Terminal reports whether s is a final status.
func (s ItemStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ItemResult is the final (or current) state of one item, surfaced to the
// consumer in the aggregate completion payload.
type ItemResult struct {
	ItemID     string
	Status     ItemStatus
	DocumentID string
	Err        error
}

// Result is the aggregate payload delivered once per batch. It reports
// successes and failures alike; a failed item never blocks the signal.
type Result struct {
	BatchID string
	Items   []ItemResult
}

var (
	ErrEmptyBatch      = errors.New("batch must contain at least one item")
	ErrUnknownBatch    = errors.New("unknown batch")
	ErrUnknownItem     = errors.New("unknown batch item")
	ErrDuplicateItemID = errors.New("duplicate item id")
)

type itemState struct {
	status     ItemStatus
	documentID string
	err        error
}

type uploadBatch struct {
	items           map[string]*itemState
	completionFired bool
}

func (b *uploadBatch) allTerminal() bool {
	for _, it := range b.items {
		if !it.status.Terminal() {
			return false
		}
	}
	return true
}

// Coordinator aggregates per-item status reports. Reports may arrive from
// any goroutine in any interleaving; the completion callback fires exactly
// once per batch, after and only after the last item turns terminal.
type Coordinator struct {
	mu         sync.Mutex
	batches    map[string]*uploadBatch
	onComplete func(Result)
}

// NewCoordinator creates a Coordinator. onComplete may be nil; when set it
// is invoked outside the coordinator's lock, so it may call back into the
// coordinator freely.
func NewCoordinator(onComplete func(Result)) *Coordinator {
	return &Coordinator{
		batches:    make(map[string]*uploadBatch),
		onComplete: onComplete,
	}
}

// StartBatch registers a new batch with every item pending and returns its id.
func (c *Coordinator) StartBatch(itemIDs []string) (string, error) {
	if len(itemIDs) == 0 {
		return "", ErrEmptyBatch
	}

	items := make(map[string]*itemState, len(itemIDs))
	for _, id := range itemIDs {
		if _, dup := items[id]; dup {
			return "", fmt.Errorf("%w: %s", ErrDuplicateItemID, id)
		}
		items[id] = &itemState{status: StatusPending}
	}

	batchID := uuid.NewString()

	c.mu.Lock()
	c.batches[batchID] = &uploadBatch{items: items}
	c.mu.Unlock()

	return batchID, nil
}

// ReportItemStatus advances one item. Transitions are monotonic; a report
// that would move an item backwards, or re-report a terminal item, is an
// idempotent no-op. When the report makes the last item terminal, the
// completion callback fires with the aggregate result.
func (c *Coordinator) ReportItemStatus(batchID, itemID string, status ItemStatus, documentID string, itemErr error) error {
	if _, ok := statusRank[status]; !ok {
		return fmt.Errorf("unknown status %q", status)
	}

	c.mu.Lock()

	b, ok := c.batches[batchID]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownBatch
	}
	it, ok := b.items[itemID]
	if !ok {
		c.mu.Unlock()
		return ErrUnknownItem
	}

	if it.status.Terminal() || statusRank[status] <= statusRank[it.status] {
		c.mu.Unlock()
		return nil
	}

	it.status = status
	if documentID != "" {
		it.documentID = documentID
	}
	if itemErr != nil {
		it.err = itemErr
	}

	var fire bool
	var result Result
	if status.Terminal() && !b.completionFired && b.allTerminal() {
		b.completionFired = true
		fire = true
		result = c.snapshotLocked(batchID, b)
	}
	c.mu.Unlock()

	if fire && c.onComplete != nil {
		c.onComplete(result)
	}
	return nil
}

// IsBatchComplete reports whether every item of the batch is terminal.
func (c *Coordinator) IsBatchComplete(batchID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.batches[batchID]
	if !ok {
		return false, ErrUnknownBatch
	}
	return b.allTerminal(), nil
}

// Results returns the current per-item results of a batch.
func (c *Coordinator) Results(batchID string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.batches[batchID]
	if !ok {
		return Result{}, ErrUnknownBatch
	}
	return c.snapshotLocked(batchID, b), nil
}

// Forget retires a batch once the consumer is done with its results.
func (c *Coordinator) Forget(batchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.batches, batchID)
}

func (c *Coordinator) snapshotLocked(batchID string, b *uploadBatch) Result {
	items := make([]ItemResult, 0, len(b.items))
	for id, it := range b.items {
		items = append(items, ItemResult{
			ItemID:     id,
			Status:     it.status,
			DocumentID: it.documentID,
			Err:        it.err,
		})
	}
	return Result{BatchID: batchID, Items: items}
}
