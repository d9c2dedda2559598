// Package credits implements the per-user credit ledger: balances plus an
// append-only entry log. Operations on one user are serialized; different users
// proceed concurrently.
package credits

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"vistora/internal/domain"
)

// Entry reasons written by the ledger.
const (
	ReasonOpening   = "opening_balance"
	ReasonReserve   = "job_reserve"
	ReasonCommit    = "job_commit"
	ReasonRelease   = "job_release"
	ReasonRefund    = "job_cancel_refund"
	ReasonFee       = "job_cancel_fee"
	ReasonTopup     = "topup"
	ReasonBootstrap = "bootstrap_credit"
)

// Ledger owns all balance mutations.
type Ledger struct {
	store          domain.AccountStore
	defaultBalance int
	now            func() time.Time
	log            zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithDefaultBalance sets the balance new accounts start with.
func WithDefaultBalance(n int) Option { return func(l *Ledger) { l.defaultBalance = n } }

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option { return func(l *Ledger) { l.now = now } }

func WithLogger(log zerolog.Logger) Option { return func(l *Ledger) { l.log = log } }

func New(store domain.AccountStore, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		now:   time.Now,
		log:   zerolog.Nop(),
		locks: make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// userLock returns the mutex for userID, creating it on first use.
func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	mu, ok := l.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[userID] = mu
	}
	return mu
}

func (l *Ledger) stamp() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

// load returns the account, materializing it at the default balance when absent.
// The returned entries must be written with the first mutation.
func (l *Ledger) load(ctx context.Context, userID string) (domain.Account, []domain.LedgerEntry, error) {
	acct, _, pending, err := l.loadOrOpen(ctx, userID)
	return acct, pending, err
}

func (l *Ledger) loadOrOpen(ctx context.Context, userID string) (domain.Account, bool, []domain.LedgerEntry, error) {
	acct, ok, err := l.store.GetAccount(ctx, userID)
	if err != nil {
		return domain.Account{}, false, nil, fmt.Errorf("load account %s: %w", userID, err)
	}
	if ok {
		return acct, false, nil, nil
	}
	now := l.stamp()
	acct = domain.Account{UserID: userID, Balance: l.defaultBalance, CreatedAt: now, UpdatedAt: now}
	var pending []domain.LedgerEntry
	if l.defaultBalance != 0 {
		pending = append(pending, l.entry(userID, domain.EntryOpening, l.defaultBalance, 0, ReasonOpening, "", now))
	}
	return acct, true, pending, nil
}

func (l *Ledger) entry(userID string, kind domain.EntryKind, amount, consumed int, reason, ref string, at time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Amount:    amount,
		Consumed:  consumed,
		Reason:    reason,
		RefID:     ref,
		CreatedAt: at,
	}
}

func validUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return nil
}

// Balance returns the current balance, materializing unknown users.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	if err := validUser(userID); err != nil {
		return 0, err
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	acct, opened, pending, err := l.loadOrOpen(ctx, userID)
	if err != nil {
		return 0, err
	}
	if opened {
		if err := l.store.ApplyEntries(ctx, acct, pending); err != nil {
			return 0, fmt.Errorf("open account %s: %w", userID, err)
		}
	}
	return acct.Balance, nil
}

// Reserve debits amount and records a reserve entry tied to ref. The check and
// debit happen under the user's lock; on insufficient funds nothing is written.
func (l *Ledger) Reserve(ctx context.Context, userID string, amount int, ref string) (domain.LedgerEntry, error) {
	if err := validUser(userID); err != nil {
		return domain.LedgerEntry{}, err
	}
	if amount < 1 {
		return domain.LedgerEntry{}, fmt.Errorf("%w: reserve amount must be >= 1", domain.ErrInvalidArgument)
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	acct, pending, err := l.load(ctx, userID)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if acct.Balance < amount {
		return domain.LedgerEntry{}, fmt.Errorf("%w: balance=%d, required=%d", domain.ErrInsufficientCredits, acct.Balance, amount)
	}
	now := l.stamp()
	e := l.entry(userID, domain.EntryReserve, -amount, 0, ReasonReserve, ref, now)
	acct.Balance -= amount
	acct.UpdatedAt = now
	if err := l.store.ApplyEntries(ctx, acct, append(pending, e)); err != nil {
		return domain.LedgerEntry{}, fmt.Errorf("reserve: %w", err)
	}
	l.log.Debug().Str("user_id", userID).Int("credits", amount).Str("ref_id", ref).Msg("credits reserved")
	return e, nil
}

// reservedFor sums the open reservation for ref. It returns ErrAlreadySettled if
// a settling entry already exists and ErrNotFound if nothing was reserved.
func (l *Ledger) reservedFor(ctx context.Context, userID, ref string) (int, error) {
	entries, err := l.store.EntriesByRef(ctx, userID, ref)
	if err != nil {
		return 0, fmt.Errorf("load entries for %s: %w", ref, err)
	}
	reserved := 0
	for _, e := range entries {
		if e.Kind.Settles() {
			return 0, fmt.Errorf("%w: ref %s", domain.ErrAlreadySettled, ref)
		}
		if e.Kind == domain.EntryReserve {
			reserved += -e.Amount
		}
	}
	if reserved == 0 {
		return 0, fmt.Errorf("%w: no reservation for ref %s", domain.ErrNotFound, ref)
	}
	return reserved, nil
}

// settle writes entries for ref after the idempotency check, applying delta to the balance.
func (l *Ledger) settle(ctx context.Context, userID, ref string, amount int, build func(now time.Time, reserved int) ([]domain.LedgerEntry, int, error)) ([]domain.LedgerEntry, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: ref id is required", domain.ErrInvalidArgument)
	}
	if amount < 1 {
		return nil, fmt.Errorf("%w: settlement amount must be >= 1", domain.ErrInvalidArgument)
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	reserved, err := l.reservedFor(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if amount > reserved {
		return nil, fmt.Errorf("%w: amount %d exceeds reservation %d", domain.ErrInvalidArgument, amount, reserved)
	}
	acct, pending, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := l.stamp()
	entries, delta, err := build(now, reserved)
	if err != nil {
		return nil, err
	}
	acct.Balance += delta
	acct.UpdatedAt = now
	if err := l.store.ApplyEntries(ctx, acct, append(pending, entries...)); err != nil {
		return nil, fmt.Errorf("settle %s: %w", ref, err)
	}
	return entries, nil
}

// Commit converts the reservation into a permanent spend. The balance is unchanged.
func (l *Ledger) Commit(ctx context.Context, userID string, amount int, ref string) (domain.LedgerEntry, error) {
	entries, err := l.settle(ctx, userID, ref, amount, func(now time.Time, _ int) ([]domain.LedgerEntry, int, error) {
		return []domain.LedgerEntry{l.entry(userID, domain.EntryCommit, 0, amount, ReasonCommit, ref, now)}, 0, nil
	})
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	l.log.Debug().Str("user_id", userID).Int("credits", amount).Str("ref_id", ref).Msg("credits committed")
	return entries[0], nil
}

// Release returns amount to the balance.
func (l *Ledger) Release(ctx context.Context, userID string, amount int, ref string) (domain.LedgerEntry, error) {
	entries, err := l.settle(ctx, userID, ref, amount, func(now time.Time, _ int) ([]domain.LedgerEntry, int, error) {
		return []domain.LedgerEntry{l.entry(userID, domain.EntryRefund, amount, 0, ReasonRelease, ref, now)}, amount, nil
	})
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	l.log.Debug().Str("user_id", userID).Int("credits", amount).Str("ref_id", ref).Msg("credits released")
	return entries[0], nil
}

// ReleasePartial refunds part of a reservation and records the remainder as a
// retained fee. Both entries are written atomically.
func (l *Ledger) ReleasePartial(ctx context.Context, userID string, reserved, refund int, ref string) ([]domain.LedgerEntry, error) {
	if refund < 0 || refund > reserved {
		return nil, fmt.Errorf("%w: refund %d outside [0,%d]", domain.ErrInvalidArgument, refund, reserved)
	}
	entries, err := l.settle(ctx, userID, ref, reserved, func(now time.Time, _ int) ([]domain.LedgerEntry, int, error) {
		var out []domain.LedgerEntry
		if refund > 0 {
			out = append(out, l.entry(userID, domain.EntryRefund, refund, 0, ReasonRefund, ref, now))
		}
		if fee := reserved - refund; fee > 0 {
			out = append(out, l.entry(userID, domain.EntryFee, 0, fee, ReasonFee, ref, now))
		}
		return out, refund, nil
	})
	if err != nil {
		return nil, err
	}
	l.log.Debug().Str("user_id", userID).Int("credits", refund).Int("fee", reserved-refund).Str("ref_id", ref).Msg("credits partially released")
	return entries, nil
}

// Topup credits amount and returns the new balance.
func (l *Ledger) Topup(ctx context.Context, userID string, amount int, reason string) (int, error) {
	if err := validUser(userID); err != nil {
		return 0, err
	}
	if amount < 1 {
		return 0, fmt.Errorf("%w: topup amount must be >= 1", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(reason) == "" {
		reason = ReasonTopup
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	acct, pending, err := l.load(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := l.stamp()
	acct.Balance += amount
	acct.UpdatedAt = now
	e := l.entry(userID, domain.EntryTopup, amount, 0, reason, "", now)
	if err := l.store.ApplyEntries(ctx, acct, append(pending, e)); err != nil {
		return 0, fmt.Errorf("topup: %w", err)
	}
	l.log.Info().Str("user_id", userID).Int("credits", amount).Str("reason", reason).Msg("credits topped up")
	return acct.Balance, nil
}

// EnsureAtLeast tops the user up to target when the balance is lower.
// It returns the resulting balance.
func (l *Ledger) EnsureAtLeast(ctx context.Context, userID string, target int) (int, error) {
	if err := validUser(userID); err != nil {
		return 0, err
	}
	mu := l.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	acct, opened, pending, err := l.loadOrOpen(ctx, userID)
	if err != nil {
		return 0, err
	}
	if acct.Balance >= target {
		if opened {
			if err := l.store.ApplyEntries(ctx, acct, pending); err != nil {
				return 0, fmt.Errorf("open account %s: %w", userID, err)
			}
		}
		return acct.Balance, nil
	}
	now := l.stamp()
	amount := target - acct.Balance
	acct.Balance = target
	acct.UpdatedAt = now
	e := l.entry(userID, domain.EntryTopup, amount, 0, ReasonBootstrap, "", now)
	if err := l.store.ApplyEntries(ctx, acct, append(pending, e)); err != nil {
		return 0, fmt.Errorf("bootstrap credits: %w", err)
	}
	l.log.Info().Str("user_id", userID).Int("credits", amount).Msg("bootstrap credits applied")
	return acct.Balance, nil
}

// Transactions lists the user's entries in append order.
func (l *Ledger) Transactions(ctx context.Context, userID string) ([]domain.LedgerEntry, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	entries, err := l.store.ListEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	return entries, nil
}
