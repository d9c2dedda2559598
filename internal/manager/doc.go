// Package manager owns the restoration job lifecycle: creation with credit
// reservation, a FIFO queue drained by a single worker goroutine, cancellation,
// settlement and crash reconciliation. It is structured into small files by
// concern:
//
//   - manager.go: core Manager type, constructor, Start/Stop, getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: CreateRequest and the status transition table.
//   - errors.go: error helpers (IsNotFound, IsInvalidTransition, ...).
//   - create.go: Create, including profile merge and model resolution.
//   - cancel.go: Cancel for queued jobs with partial refund.
//   - worker.go: dequeue, runner execution, progress and terminal transitions.
//   - settle.go: ledger settlement per terminal status.
//   - reconcile.go: stale-running sweep and missed-settlement repair.
//   - status_report.go, sanity.go: Status and runtime dependency checks.
//   - events.go, eventpub_memory.go: Event, EventPublisher and the in-memory EventBus.
//   - metrics.go: Prometheus job metrics.
//
// The manager is the only writer of job records. Runners report progress
// through a callback; the manager clamps, orders and persists it.
package manager
