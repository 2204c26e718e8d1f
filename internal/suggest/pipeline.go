package suggest

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/teian/internal/generate"
	"github.com/hyperjump/teian/internal/models"
)

// State is the lifecycle phase of a session's current request.
type State int32

const (
	StateIdle State = iota
	StateDebouncing
	StateRetrieving
	StateGenerating
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDebouncing:
		return "debouncing"
	case StateRetrieving:
		return "retrieving"
	case StateGenerating:
		return "generating"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Retriever is the retrieval dependency of the pipeline.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (*models.RetrievalResponse, error)
}

// Options tune pipeline behavior.
type Options struct {
	Debounce        time.Duration
	MinTriggerChars int
	ContextWindow   int
	NumSuggestions  int
	Workers         int
}

// Pipeline produces suggestions for editing sessions. Each keystroke is
// submitted; work starts only after the debounce window passes with no newer
// submission, and a newer submission supersedes anything in flight.
type Pipeline struct {
	retriever Retriever
	generator generate.Generator
	fallback  generate.Generator
	opts      Options
	sem       chan struct{}
	logger    *zap.Logger
}

// NewPipeline creates a Pipeline. generator may be nil to always use the
// fallback; fallback must not be nil.
func NewPipeline(retriever Retriever, generator, fallback generate.Generator, opts Options, logger *zap.Logger) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.MinTriggerChars <= 0 {
		opts.MinTriggerChars = 3
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 100
	}
	if opts.NumSuggestions <= 0 {
		opts.NumSuggestions = 3
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Pipeline{
		retriever: retriever,
		generator: generator,
		fallback:  fallback,
		opts:      opts,
		sem:       make(chan struct{}, opts.Workers),
		logger:    logger,
	}
}

// Session is one editing stream. Submissions are serialized per session:
// only the latest request can reach the callback. Safe for concurrent use.
type Session struct {
	p        *Pipeline
	callback func(models.SuggestionResponse)

	mu        sync.Mutex
	nextID    uint64
	currentID uint64
	state     State
	timer     *time.Timer
	cancel    context.CancelFunc
	closed    bool
}

// NewSession creates a session delivering results to callback. The callback
// runs on a pipeline goroutine and fires at most once per request ID, only
// for the request that is still the latest at delivery time.
func (p *Pipeline) NewSession(callback func(models.SuggestionResponse)) *Session {
	return &Session{p: p, callback: callback, state: StateIdle}
}

// Submit registers new editor text and returns the request ID. Any pending
// debounce timer is reset and any in-flight work for an older request is
// cancelled.
func (s *Session) Submit(text string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0
	}

	s.nextID++
	id := s.nextID
	s.currentID = id
	s.supersedeLocked()

	query := ExtractQuery(text, s.p.opts.ContextWindow)
	s.state = StateDebouncing
	s.timer = time.AfterFunc(s.p.opts.Debounce, func() { s.fire(id, query) })
	return id
}

// Cancel aborts the given request if it is still the session's latest.
// Cancelling an already superseded or finished request is a no-op.
func (s *Session) Cancel(requestID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if requestID != s.currentID {
		return
	}
	switch s.state {
	case StateDebouncing, StateRetrieving, StateGenerating:
		s.supersedeLocked()
		s.state = StateCancelled
	}
}

// State reports the lifecycle phase of the latest request.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close cancels any pending work. The session accepts no further submissions.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersedeLocked()
	s.closed = true
	s.state = StateIdle
}

// supersedeLocked stops the debounce timer and cancels in-flight work.
func (s *Session) supersedeLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// fire runs when the debounce window elapses with no newer submission.
func (s *Session) fire(id uint64, query string) {
	s.mu.Lock()
	if id != s.currentID || s.closed {
		s.mu.Unlock()
		return
	}
	if len([]rune(query)) < s.p.opts.MinTriggerChars {
		s.state = StateIdle
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateRetrieving
	s.mu.Unlock()

	go s.run(ctx, id, query)
}

func (s *Session) run(ctx context.Context, id uint64, query string) {
	select {
	case s.p.sem <- struct{}{}:
		defer func() { <-s.p.sem }()
	case <-ctx.Done():
		s.finish(id, StateCancelled)
		return
	}

	start := time.Now()
	resp, err := s.p.retriever.Retrieve(ctx, query)
	if ctx.Err() != nil {
		s.finish(id, StateCancelled)
		return
	}
	if err != nil {
		s.p.logger.Warn("retrieval failed", zap.Uint64("request_id", id), zap.Error(err))
		s.finish(id, StateFailed)
		return
	}

	if !s.advance(id, StateGenerating) {
		return
	}

	req := generate.Request{
		Query:          query,
		Context:        resp.Results,
		MaxSuggestions: s.p.opts.NumSuggestions,
	}
	suggestions, err := s.generate(ctx, req)
	if ctx.Err() != nil {
		s.finish(id, StateCancelled)
		return
	}
	if err != nil {
		s.p.logger.Warn("generation failed", zap.Uint64("request_id", id), zap.Error(err))
		s.finish(id, StateFailed)
		return
	}

	s.deliver(id, models.SuggestionResponse{
		RequestID:   id,
		Suggestions: suggestions,
		QueryTime:   time.Since(start).Milliseconds(),
	})
}

// generate tries the configured backend and falls back to templates when it
// is unavailable.
func (s *Session) generate(ctx context.Context, req generate.Request) ([]models.Suggestion, error) {
	if s.p.generator != nil {
		suggestions, err := s.p.generator.Generate(ctx, req)
		if err == nil {
			return suggestions, nil
		}
		if !errors.Is(err, generate.ErrUnavailable) {
			return nil, err
		}
		s.p.logger.Debug("generation backend unavailable, using templates", zap.Error(err))
	}
	return s.p.fallback.Generate(ctx, req)
}

// advance moves the session to next if id is still the latest request.
func (s *Session) advance(id uint64, next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.currentID || s.closed {
		return false
	}
	s.state = next
	return true
}

// finish records a terminal state if id is still the latest request.
func (s *Session) finish(id uint64, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.currentID || s.closed {
		return
	}
	s.state = state
}

// deliver invokes the callback unless id was superseded or cancelled while
// the response was being assembled.
func (s *Session) deliver(id uint64, resp models.SuggestionResponse) {
	s.mu.Lock()
	if id != s.currentID || s.closed || s.state == StateCancelled {
		s.mu.Unlock()
		return
	}
	s.state = StateCompleted
	s.cancel = nil
	callback := s.callback
	s.mu.Unlock()

	if callback != nil {
		callback(resp)
	}
}
