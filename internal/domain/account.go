package domain

import "time"

// EntryKind classifies ledger entries.
type EntryKind string

const (
	EntryOpening EntryKind = "opening"
	EntryTopup   EntryKind = "topup"
	EntryReserve EntryKind = "reserve"
	EntryCommit  EntryKind = "commit"
	EntryRefund  EntryKind = "refund"
	EntryFee     EntryKind = "fee"
)

// Settles reports whether an entry of this kind resolves a reservation.
func (k EntryKind) Settles() bool {
	return k == EntryCommit || k == EntryRefund || k == EntryFee
}

// Account is a per-user credit balance.
type Account struct {
	UserID    string    `json:"user_id"`
	Balance   int       `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerEntry is one append-only ledger line. Amount is the signed balance delta;
// Consumed counts credits permanently spent (commit and fee entries).
type LedgerEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      EntryKind `json:"kind"`
	Amount    int       `json:"amount"`
	Consumed  int       `json:"consumed,omitempty"`
	Reason    string    `json:"reason"`
	RefID     string    `json:"ref_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
