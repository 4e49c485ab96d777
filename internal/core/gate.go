package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"madipath/internal/llm"
	"madipath/internal/metrics"
	"madipath/pkg"
)

// CredentialProvider is the environment facility that knows whether an API
// key is selected and can prompt for one.
type CredentialProvider interface {
	HasSelectedKey(ctx context.Context) (bool, error)
	OpenSelectKey(ctx context.Context) error
}

// keyResetter is implemented by providers that cache the selected key.
type keyResetter interface {
	Reset()
}

// Gate tracks whether the app may send triage requests.  It starts unknown
// until the first Check.
type Gate struct {
	provider CredentialProvider
	log      *zap.Logger

	mu    sync.Mutex
	state pkg.ConnectionState
}

// NewGate constructs a Gate in the unknown state.
func NewGate(provider CredentialProvider, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	g := &Gate{provider: provider, log: log}
	g.set(pkg.ConnectionUnknown)
	return g
}

// State returns the current connection state.
func (g *Gate) State() pkg.ConnectionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Check asks the provider whether a key is selected.  A failing query
// counts as disconnected.
func (g *Gate) Check(ctx context.Context) pkg.ConnectionState {
	ok, err := g.provider.HasSelectedKey(ctx)
	if err != nil {
		g.log.Warn("credential check failed", zap.Error(err))
		ok = false
	}
	if ok {
		return g.set(pkg.ConnectionConnected)
	}
	return g.set(pkg.ConnectionDisconnected)
}

// Connect opens the provider's key selection.  On success the gate is
// marked connected without querying again; on failure the state is kept.
func (g *Gate) Connect(ctx context.Context) (pkg.ConnectionState, error) {
	if err := g.provider.OpenSelectKey(ctx); err != nil {
		g.log.Error("key selection failed", zap.Error(err))
		return g.State(), err
	}
	return g.set(pkg.ConnectionConnected), nil
}

// Observe inspects a triage error and flips the gate to disconnected when
// the error is credential related, dropping any cached key so the next
// selection reads the sources again.  It reports whether it did.
func (g *Gate) Observe(err error) bool {
	if err == nil {
		return false
	}
	if !errors.Is(err, ErrDisconnected) && !llm.IsCredential(err) && !llm.IsCredentialMessage(err.Error()) {
		return false
	}
	g.log.Warn("credential rejected, resetting connection", zap.Error(err))
	if r, ok := g.provider.(keyResetter); ok {
		r.Reset()
	}
	g.set(pkg.ConnectionDisconnected)
	return true
}

func (g *Gate) set(s pkg.ConnectionState) pkg.ConnectionState {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
	metrics.SetConnectionState(string(s),
		string(pkg.ConnectionUnknown), string(pkg.ConnectionConnected), string(pkg.ConnectionDisconnected))
	return s
}
