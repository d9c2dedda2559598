package domain

import "context"

// JobStore persists job records with read/replace semantics.
type JobStore interface {
	PutJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, id string) (Job, bool, error)
	ListJobs(ctx context.Context) ([]Job, error)
}

// AccountStore persists balances and ledger entries. ApplyEntries must store the
// account and append the entries atomically.
type AccountStore interface {
	GetAccount(ctx context.Context, userID string) (Account, bool, error)
	ApplyEntries(ctx context.Context, acct Account, entries []LedgerEntry) error
	ListEntries(ctx context.Context, userID string) ([]LedgerEntry, error)
	EntriesByRef(ctx context.Context, userID, refID string) ([]LedgerEntry, error)
}

// ProfileStore persists named profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, name string) (Profile, bool, error)
	PutProfile(ctx context.Context, p Profile) error
	ListProfiles(ctx context.Context) ([]Profile, error)
}

// Store bundles every repository behind one backend.
type Store interface {
	JobStore
	AccountStore
	ProfileStore
	Close() error
}
