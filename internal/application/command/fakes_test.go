package command

import (
	"context"
	"sync"

	"github.com/mentora-hub/mentora-progression/internal/domain/challenge"
	"github.com/mentora-hub/mentora-progression/internal/domain/leaderboard"
	"github.com/mentora-hub/mentora-progression/internal/domain/progression"
	"github.com/mentora-hub/mentora-progression/internal/domain/shared"
)

// In-memory fakes backing the command handler tests.

type memStore struct {
	mu         sync.Mutex
	states     map[string]*progression.State
	txs        []progression.XPTransaction
	history    map[string][]progression.TradeRecord
	challenges map[string]*challenge.Challenge
}

func newMemStore() *memStore {
	return &memStore{
		states:     make(map[string]*progression.State),
		history:    make(map[string][]progression.TradeRecord),
		challenges: make(map[string]*challenge.Challenge),
	}
}

func challengeKey(ref shared.UserRef, challengeID string) string {
	return ref.String() + "#" + challengeID
}

// memUow implements UnitOfWork over the shared store. The fake has no real
// transaction semantics; handler tests only exercise the happy paths.
type memUow struct{ store *memStore }

type memFactory struct{ store *memStore }

func (f *memFactory) WithinTx(_ context.Context, fn func(uow UnitOfWork) error) error {
	return fn(&memUow{store: f.store})
}

func (u *memUow) States() progression.StateRepository      { return &memStates{store: u.store} }
func (u *memUow) Transactions() progression.TransactionLog { return &memTxLog{store: u.store} }
func (u *memUow) TradeHistory() progression.TradeHistoryWriter {
	return &memHistory{store: u.store}
}
func (u *memUow) Challenges() challenge.Repository { return &memChallenges{store: u.store} }

type memStates struct{ store *memStore }

func (r *memStates) Get(_ context.Context, ref shared.UserRef) (*progression.State, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	state, ok := r.store.states[ref.String()]
	if !ok {
		return nil, shared.ErrStateNotFound
	}
	return state.Clone(), nil
}

func (r *memStates) GetForUpdate(ctx context.Context, ref shared.UserRef) (*progression.State, error) {
	return r.Get(ctx, ref)
}

func (r *memStates) Create(_ context.Context, state *progression.State) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.states[state.Ref.String()]; ok {
		return shared.ErrStateAlreadyExists
	}
	r.store.states[state.Ref.String()] = state.Clone()
	return nil
}

func (r *memStates) Save(_ context.Context, state *progression.State) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.states[state.Ref.String()] = state.Clone()
	return nil
}

type memTxLog struct{ store *memStore }

func (l *memTxLog) Append(_ context.Context, txs []progression.XPTransaction) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.txs = append(l.store.txs, txs...)
	return nil
}

func (l *memTxLog) ListRecent(_ context.Context, ref shared.UserRef, limit int) ([]progression.XPTransaction, error) {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	var result []progression.XPTransaction
	for i := len(l.store.txs) - 1; i >= 0 && len(result) < limit; i-- {
		if l.store.txs[i].Ref == ref {
			result = append(result, l.store.txs[i])
		}
	}
	return result, nil
}

type memHistory struct{ store *memStore }

func (h *memHistory) AppendOutcome(_ context.Context, ref shared.UserRef, record progression.TradeRecord) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.history[ref.String()] = append(h.store.history[ref.String()], record)
	return nil
}

func (h *memHistory) RecentOutcomes(_ context.Context, ref shared.UserRef, limit int) ([]progression.TradeOutcome, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	records := h.store.history[ref.String()]
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	outcomes := make([]progression.TradeOutcome, len(records))
	for i, r := range records {
		outcomes[i] = r.Outcome
	}
	return outcomes, nil
}

type memChallenges struct{ store *memStore }

func (r *memChallenges) Get(_ context.Context, ref shared.UserRef, challengeID string) (*challenge.Challenge, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ch, ok := r.store.challenges[challengeKey(ref, challengeID)]
	if !ok {
		return nil, shared.WrapError("challenge", "Get", shared.ErrNotFound, "challenge not found", nil)
	}
	return ch, nil
}

func (r *memChallenges) GetForUpdate(ctx context.Context, ref shared.UserRef, challengeID string) (*challenge.Challenge, error) {
	return r.Get(ctx, ref, challengeID)
}

func (r *memChallenges) Create(_ context.Context, ch *challenge.Challenge) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.challenges[challengeKey(ch.Ref, ch.ChallengeID)] = ch
	return nil
}

func (r *memChallenges) Save(_ context.Context, ch *challenge.Challenge) error {
	return r.Create(context.Background(), ch)
}

type memCache struct {
	mu          sync.Mutex
	invalidated []shared.TenantID
}

func (c *memCache) GetRanking(_ context.Context, tenantID shared.TenantID, _ int) (*leaderboard.Ranking, error) {
	return nil, shared.WrapError("leaderboard", "GetRanking", shared.ErrNotFound, "ranking not cached", nil)
}

func (c *memCache) PutRanking(_ context.Context, _ *leaderboard.Ranking) error { return nil }

func (c *memCache) Invalidate(_ context.Context, tenantID shared.TenantID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, tenantID)
	return nil
}

type memPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *memPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *memPublisher) published() []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.Event(nil), p.events...)
}
