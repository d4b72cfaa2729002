package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hstream-dev/hstream/pkg/component"
	"github.com/hstream-dev/hstream/pkg/session"
)

// DefaultSessionTTL is how long session state outlives its last write.
const DefaultSessionTTL = 24 * time.Hour

// Observer receives engine events as they happen: every script execution
// with its outcome, every reconciliation with its decision, and every applied
// value change. Implementations must be safe for concurrent use.
type Observer interface {
	ScriptRun(err error)
	Reconcile(fullReload bool, refreshKeys int)
	ValueChange()
}

type noopObserver struct{}

func (noopObserver) ScriptRun(error)     {}
func (noopObserver) Reconcile(bool, int) {}
func (noopObserver) ValueChange()        {}

// Engine drives script execution and reconciliation for all sessions. It owns
// each session's state for the duration of one operation: state is loaded,
// mutated, and saved back under that session's lock.
type Engine struct {
	script Script
	store  session.Store
	ttl    time.Duration
	logger *slog.Logger
	obs    Observer

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is a refcounted per-session mutex. The refcount lets the engine
// drop the map entry once no operation holds or awaits it, so the map tracks
// active sessions rather than every session ever seen.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures an Engine.
type Option func(*Engine)

// WithSessionTTL sets how long session state outlives its last write.
// Default: 24 hours.
func WithSessionTTL(d time.Duration) Option {
	return func(e *Engine) {
		e.ttl = d
	}
}

// WithLogger sets the engine's logger.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithObserver sets the observer notified of script runs, reconciliations,
// and value changes. Default: events are discarded.
func WithObserver(obs Observer) Option {
	return func(e *Engine) {
		if obs != nil {
			e.obs = obs
		}
	}
}

// New creates an Engine running script against state persisted in store.
func New(script Script, store session.Store, opts ...Option) *Engine {
	e := &Engine{
		script: script,
		store:  store,
		ttl:    DefaultSessionTTL,
		logger: slog.Default(),
		obs:    noopObserver{},
		locks:  make(map[string]*sessionLock),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// lockSession acquires the mutex serializing operations for one session and
// returns its release func. Concurrent requests from the same visitor (two
// tabs, rapid double submits) queue here instead of racing on stored state.
func (e *Engine) lockSession(sessionID string) func() {
	e.mu.Lock()
	lock, ok := e.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		e.locks[sessionID] = lock
	}
	lock.refs++
	e.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		e.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(e.locks, sessionID)
		}
		e.mu.Unlock()
	}
}

// RootVisit handles a fresh load of the root route: state is fully reset, the
// script runs against the blank slate, and the refresh queue is cleared so the
// freshly served page does not immediately ask for the reload its own first
// run would otherwise signal. Returns the committed state for page rendering.
func (e *Engine) RootVisit(ctx context.Context, sessionID string) (*session.State, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	st, err := e.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.Reset()
	next, err := e.runScript(sessionID, st.Components)
	if err != nil {
		return nil, err
	}
	st.Components = next
	st.PendingRefresh.Clear()
	st.RerunNeeded = false

	if err := e.saveState(ctx, st); err != nil {
		return nil, err
	}

	e.logger.Debug("root visit",
		"session_id", sessionID,
		"components", len(st.Components.VisibleKeys()))
	return st, nil
}

// PollRefresh answers a client poll. If a value change flagged the session for
// a rerun, the script is re-executed and reconciled first; the resulting
// pending-refresh set is then reported without being drained. Repeated polls
// without an intervening ack return the same decision.
func (e *Engine) PollRefresh(ctx context.Context, sessionID string) (Decision, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	st, err := e.loadState(ctx, sessionID)
	if err != nil {
		return Decision{}, err
	}

	if st.RerunNeeded {
		next, err := e.runScript(sessionID, st.Components)
		if err != nil {
			// Failed runs commit nothing: stored components and the queue
			// stay as they were, and the next poll tries again.
			return Decision{}, err
		}
		decision := Reconcile(st.Components, next)
		e.obs.Reconcile(decision.FullReload, len(decision.RefreshKeys))
		e.applyDecision(st, decision)
		st.Components = next
		st.RerunNeeded = false

		if err := e.saveState(ctx, st); err != nil {
			return Decision{}, err
		}

		e.logger.Debug("reconciled",
			"session_id", sessionID,
			"full_reload", decision.FullReload,
			"refresh_keys", len(decision.RefreshKeys))
	}

	return e.pendingDecision(st), nil
}

// AckFullReload drains the whole refresh queue after a full-reload decision
// has been delivered to the client.
func (e *Engine) AckFullReload(ctx context.Context, sessionID string) error {
	unlock := e.lockSession(sessionID)
	defer unlock()

	st, err := e.loadState(ctx, sessionID)
	if err != nil {
		return err
	}
	st.PendingRefresh.Clear()
	return e.saveState(ctx, st)
}

// ComponentLabel returns the stored record for key and removes the key from
// the refresh queue, since serving the label is what the refresh asked for.
// Returns ErrUnknownComponent for keys not in the session's component set.
func (e *Engine) ComponentLabel(ctx context.Context, sessionID, key string) (*component.Record, error) {
	unlock := e.lockSession(sessionID)
	defer unlock()

	st, err := e.loadState(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rec, ok := st.Components.Get(key)
	if !ok || component.IsMarkupKey(key) {
		return nil, ErrUnknownComponent
	}

	if st.PendingRefresh.Contains(key) {
		st.PendingRefresh.Remove(key)
		if err := e.saveState(ctx, st); err != nil {
			return nil, err
		}
	}
	return rec.Clone(), nil
}

// ApplyValueChange records a visitor-supplied value for an input component and
// flags the session for a script rerun on its next poll. This is the single
// mutation entry point from the visitor side that does not go through script
// execution. Returns ErrUnknownComponent for keys not in the component set;
// nothing is mutated in that case.
func (e *Engine) ApplyValueChange(ctx context.Context, sessionID, key, value string) error {
	unlock := e.lockSession(sessionID)
	defer unlock()

	st, err := e.loadState(ctx, sessionID)
	if err != nil {
		return err
	}

	rec, ok := st.Components.Get(key)
	if !ok || component.IsMarkupKey(key) {
		return ErrUnknownComponent
	}

	rec.CurrentValue = value
	st.RerunNeeded = true
	if err := e.saveState(ctx, st); err != nil {
		return err
	}
	e.obs.ValueChange()
	return nil
}

// runScript executes the user script against a scratch copy of the previous
// component set. The script sees prior declarations and visitor values but
// cannot corrupt committed state: on error the scratch set is discarded.
func (e *Engine) runScript(sessionID string, prev *component.Set) (*component.Set, error) {
	if e.script == nil {
		return nil, ErrNoScript
	}

	scratch := prev.Clone()
	err := e.script(newCtx(sessionID, scratch))
	e.obs.ScriptRun(err)
	if err != nil {
		e.logger.Error("script run failed",
			"session_id", sessionID,
			"error", err)
		return nil, &ScriptError{SessionID: sessionID, Err: err}
	}
	return scratch, nil
}

// applyDecision folds a reconciliation outcome into the pending-refresh set.
// A structural hold (no full reload) always clears a stale sentinel left by
// an earlier run.
func (e *Engine) applyDecision(st *session.State, d Decision) {
	if d.FullReload {
		st.PendingRefresh.Add(FullPageKey)
		return
	}
	st.PendingRefresh.Remove(FullPageKey)
	for _, key := range d.RefreshKeys {
		st.PendingRefresh.Add(key)
	}
}

// pendingDecision converts the stored refresh set into a poll response
// without draining it.
func (e *Engine) pendingDecision(st *session.State) Decision {
	if st.PendingRefresh.Contains(FullPageKey) {
		return Decision{FullReload: true}
	}
	return Decision{RefreshKeys: st.PendingRefresh.Keys()}
}

func (e *Engine) loadState(ctx context.Context, sessionID string) (*session.State, error) {
	data, err := e.store.Load(ctx, sessionID)
	if err != nil {
		return nil, &StateError{SessionID: sessionID, Op: "load", Err: err}
	}
	if data == nil {
		return session.NewState(sessionID), nil
	}
	st, err := session.Deserialize(data)
	if err != nil {
		return nil, &StateError{SessionID: sessionID, Op: "decode", Err: err}
	}
	return st, nil
}

func (e *Engine) saveState(ctx context.Context, st *session.State) error {
	st.LastActive = time.Now().UTC()
	data, err := session.Serialize(st)
	if err != nil {
		return &StateError{SessionID: st.ID, Op: "encode", Err: err}
	}
	if err := e.store.Save(ctx, st.ID, data, time.Now().Add(e.ttl)); err != nil {
		return &StateError{SessionID: st.ID, Op: "save", Err: err}
	}
	return nil
}
