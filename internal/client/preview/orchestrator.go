// Package preview orchestrates document preview: fetch the envelope, decrypt
// it, hand the plaintext to the renderer, all under a bounded deadline so the
// UI never sits on an indefinite spinner.
package preview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/docsafe/internal/common"
	"github.com/dmitrijs2005/docsafe/internal/envelope"
	"github.com/dmitrijs2005/docsafe/internal/logging"
)

// State is the lifecycle state of a preview request.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateDecrypting State = "decrypting"
	StateRendering  State = "rendering"
	StateReady      State = "ready"
	StateTimedOut   State = "timed_out"
	StateError      State = "error"
)

// Terminal reports whether s ends a request's lifecycle.
func (s State) Terminal() bool {
	return s == StateReady || s == StateTimedOut || s == StateError
}

// FailureKind classifies a failed preview for the consumer: transport
// problems are retryable, crypto problems are not.
type FailureKind string

const (
	FailureNone    FailureKind = ""
	FailureFetch   FailureKind = "fetch"
	FailureDecrypt FailureKind = "decrypt"
	FailureRender  FailureKind = "render"
)

// Outcome is the terminal result of one preview attempt. On TimedOut the
// consumer should offer a fallback action (e.g. direct download) instead of
// waiting further.
type Outcome struct {
	DocumentID string
	State      State
	Plaintext  []byte
	Failure    FailureKind
	Err        error
	Elapsed    time.Duration
}

// Fetcher retrieves a stored envelope by document id.
type Fetcher interface {
	FetchDocument(ctx context.Context, documentID string) (*envelope.Envelope, error)
}

// Decrypter opens an envelope. The envelope codec satisfies it.
type Decrypter interface {
	Decrypt(e *envelope.Envelope) ([]byte, error)
}

// Renderer receives decrypted bytes for display. May be nil in headless use.
type Renderer interface {
	Render(documentID string, plaintext []byte) error
}

// Orchestrator runs preview requests. Each request reaches exactly one
// terminal state; results arriving after the deadline are discarded and do
// not touch shared state.
type Orchestrator struct {
	fetcher  Fetcher
	codec    Decrypter
	renderer Renderer
	logger   logging.Logger
}

func NewOrchestrator(fetcher Fetcher, codec Decrypter, renderer Renderer, logger logging.Logger) *Orchestrator {
	return &Orchestrator{fetcher: fetcher, codec: codec, renderer: renderer, logger: logger}
}

// request tracks one preview's state transitions under a mutex so that the
// deadline path and the pipeline path race safely: whichever reaches a
// terminal state first wins, the loser's result is dropped.
type request struct {
	mu    sync.Mutex
	state State
}

// advance moves to a non-terminal state. It refuses once the request is
// terminal, which is how a fired deadline cancels in-flight work.
func (r *request) advance(to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return false
	}
	r.state = to
	return true
}

// finish moves to a terminal state. Returns false if some other path got
// there first; exactly one finish per request succeeds.
func (r *request) finish(to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() {
		return false
	}
	r.state = to
	return true
}

// Preview fetches, decrypts and renders one document within the deadline.
// The returned outcome is always terminal: Ready, Error, or TimedOut.
func (o *Orchestrator) Preview(ctx context.Context, documentID string, deadline time.Duration) Outcome {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	req := &request{state: StateIdle}
	results := make(chan Outcome, 1)

	go o.run(ctx, req, documentID, start, results)

	select {
	case out := <-results:
		return out
	case <-ctx.Done():
		if req.finish(StateTimedOut) {
			out := Outcome{
				DocumentID: documentID,
				State:      StateTimedOut,
				Elapsed:    time.Since(start),
			}
			o.logger.Warn(ctx, "preview timed out",
				"document_id", documentID,
				"deadline", deadline,
			)
			return out
		}
		// The pipeline finished between the deadline firing and our
		// finish attempt; its result is already in the channel.
		return <-results
	}
}

// run executes the fetch/decrypt/render pipeline. Every stage first tries to
// advance the request; if the deadline already fired, the stage result is
// discarded without emitting anything.
func (o *Orchestrator) run(ctx context.Context, req *request, documentID string, start time.Time, results chan<- Outcome) {
	if !req.advance(StateFetching) {
		return
	}
	env, err := o.fetcher.FetchDocument(ctx, documentID)
	if err != nil {
		o.fail(ctx, req, documentID, FailureFetch, fmt.Errorf("fetch document: %w", err), start, results)
		return
	}

	if !req.advance(StateDecrypting) {
		return
	}
	plaintext, err := o.codec.Decrypt(env)
	if err != nil {
		o.fail(ctx, req, documentID, FailureDecrypt, fmt.Errorf("decrypt document: %w", err), start, results)
		return
	}

	if !req.advance(StateRendering) {
		return
	}
	if o.renderer != nil {
		if err := o.renderer.Render(documentID, plaintext); err != nil {
			o.fail(ctx, req, documentID, FailureRender, fmt.Errorf("render document: %w", err), start, results)
			return
		}
	}

	if !req.finish(StateReady) {
		return
	}
	elapsed := time.Since(start)
	o.logger.Info(ctx, "preview ready",
		"document_id", documentID,
		"elapsed", elapsed,
		"size", len(plaintext),
	)
	results <- Outcome{
		DocumentID: documentID,
		State:      StateReady,
		Plaintext:  plaintext,
		Elapsed:    elapsed,
	}
}

func (o *Orchestrator) fail(ctx context.Context, req *request, documentID string, kind FailureKind, err error, start time.Time, results chan<- Outcome) {
	// A context-aware fetcher surfaces the fired deadline as an error before
	// Preview's select observes ctx.Done. That is still a timeout, not a
	// pipeline failure; the consumer gets the timeout fallback either way.
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if !req.finish(StateTimedOut) {
			return
		}
		o.logger.Warn(ctx, "preview timed out",
			"document_id", documentID,
			"error", err,
		)
		results <- Outcome{
			DocumentID: documentID,
			State:      StateTimedOut,
			Elapsed:    time.Since(start),
		}
		return
	}

	if !req.finish(StateError) {
		return
	}
	locked := errors.Is(err, common.ErrNoKey)
	o.logger.Error(ctx, "preview failed",
		"document_id", documentID,
		"failure", string(kind),
		"session_locked", locked,
		"error", err,
	)
	results <- Outcome{
		DocumentID: documentID,
		State:      StateError,
		Failure:    kind,
		Err:        err,
		Elapsed:    time.Since(start),
	}
}
