package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kweiss/voicetask/internal/helperstate"
	"github.com/kweiss/voicetask/internal/logging"
	"github.com/kweiss/voicetask/internal/model"
)

// Sentinel errors returned by the engine. Callers can match them with
// errors.Is; the wrapping message carries the conversation id.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrConversationExpired  = errors.New("conversation timeout")
)

// StatusReport is the read-only view returned by Status. It never
// mutates the conversation, so repeated calls are idempotent even for
// an expired session.
type StatusReport struct {
	Exists         bool          `json:"exists"`
	ConversationID string        `json:"conversation_id,omitempty"`
	State          State         `json:"state,omitempty"`
	CreatedAt      string        `json:"created_at,omitempty"`
	ExpiresAt      string        `json:"expires_at,omitempty"`
	IsExpired      bool          `json:"is_expired,omitempty"`
	Context        PublicContext `json:"context,omitzero"`
}

// Engine owns the set of active conversations. Each conversation is
// serialized by its own lock; the engine's lock only guards the map,
// so turns of distinct conversations proceed concurrently.
type Engine struct {
	remote  Remote
	store   helperstate.Store
	timeout time.Duration
	log     zerolog.Logger
	now     func() time.Time

	// mu guards the active map only, never a turn in flight.
	mu     sync.Mutex
	active map[string]*Context
}

// NewEngine creates an engine. store may be nil when helper-state
// mirroring is not wanted.
func NewEngine(remote Remote, store helperstate.Store, timeout time.Duration) *Engine {
	if timeout <= 0 {
		timeout = time.Duration(model.DefaultConversationTimeoutSec) * time.Second
	}
	return &Engine{
		remote:  remote,
		store:   store,
		timeout: timeout,
		log:     logging.Component("conversation"),
		now:     time.Now,
		active:  make(map[string]*Context),
	}
}

// StartConversation opens a new conversation, processes the initial
// utterance as its first turn, and mirrors the resulting state.
func (e *Engine) StartConversation(
	ctx context.Context,
	text string,
	extra map[string]any,
	timeout time.Duration,
) (TurnResult, error) {
	if timeout <= 0 {
		timeout = e.timeout
	}

	id := uuid.NewString()
	c := newContext(id, e.remote, timeout, extra, e.now)

	e.mu.Lock()
	e.active[id] = c
	e.mu.Unlock()

	e.log.Info().
		Str("conversation_id", id).
		Dur("timeout", timeout).
		Msg("conversation started")

	return e.runTurn(ctx, c, text), nil
}

// ContinueConversation feeds the next utterance to an existing
// conversation. Unknown ids and expired sessions are reported as
// errors; an expired session is purged on discovery.
func (e *Engine) ContinueConversation(
	ctx context.Context,
	id, text string,
	extra map[string]any,
) (TurnResult, error) {
	e.mu.Lock()
	c, ok := e.active[id]
	e.mu.Unlock()

	if !ok {
		return TurnResult{}, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}

	if c.IsExpired() {
		e.purge(ctx, id)
		return TurnResult{}, fmt.Errorf("%w: %s", ErrConversationExpired, id)
	}

	if len(extra) > 0 {
		c.MergeExtra(extra)
	}

	return e.runTurn(ctx, c, text), nil
}

// Status reports on a conversation without mutating it. Expired or
// completed conversations simply report Exists false once purged.
func (e *Engine) Status(id string) StatusReport {
	e.mu.Lock()
	c, ok := e.active[id]
	e.mu.Unlock()

	if !ok {
		return StatusReport{Exists: false}
	}

	return StatusReport{
		Exists:         true,
		ConversationID: c.ID(),
		State:          c.State(),
		CreatedAt:      c.CreatedAt().Format(timeFormat),
		ExpiresAt:      c.ExpiresAt().Format(timeFormat),
		IsExpired:      c.IsExpired(),
		Context:        c.Public(),
	}
}

// ActiveCount returns the number of live conversations.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// CleanupExpired purges every conversation past its deadline and
// returns how many were removed.
func (e *Engine) CleanupExpired(ctx context.Context) int {
	e.mu.Lock()
	var expired []string
	for id, c := range e.active {
		if c.IsExpired() {
			expired = append(expired, id)
		}
	}
	e.mu.Unlock()

	for _, id := range expired {
		e.purge(ctx, id)
	}
	if len(expired) > 0 {
		e.log.Info().Int("count", len(expired)).Msg("expired conversations cleaned up")
	}
	return len(expired)
}

// runTurn processes one turn, mirrors the result, and purges the
// conversation when it reached a terminal state. The mirror happens
// before the purge so a watcher sees the final state flash by, then
// the reset defaults.
func (e *Engine) runTurn(ctx context.Context, c *Context, text string) TurnResult {
	result := c.ProcessInput(ctx, text)
	result.ConversationID = c.ID()
	result.State = c.State()

	e.mirror(ctx, c)

	if c.State().Terminal() {
		e.purge(ctx, c.ID())
	}
	return result
}

// mirror writes the conversation's projection into the helper-state
// store. Mirroring failures are logged and swallowed so they never
// break the dialogue.
func (e *Engine) mirror(ctx context.Context, c *Context) {
	if e.store == nil {
		return
	}
	if err := writeProjection(ctx, e.store, Render(c)); err != nil {
		e.log.Warn().
			Err(err).
			Str("conversation_id", c.ID()).
			Msg("failed to mirror conversation state")
	}
}

// purge removes a conversation from the active set and resets the
// mirrored cells to their defaults.
func (e *Engine) purge(ctx context.Context, id string) {
	e.mu.Lock()
	delete(e.active, id)
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.Reset(ctx); err != nil {
			e.log.Warn().Err(err).Msg("failed to reset helper state")
		}
	}

	e.log.Debug().Str("conversation_id", id).Msg("conversation purged")
}
