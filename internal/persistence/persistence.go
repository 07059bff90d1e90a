// Package persistence provides hand-written repositories over pgx for
// every entity in the data model (spec §3). It replaces a generated ORM:
// every cross-row invariant check runs inside an explicit transaction, and
// the link-state repository exposes SELECT ... FOR UPDATE SKIP LOCKED so
// concurrent reconciler passes never trample one another (spec §4.1, §9).
package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of pgxpool.Pool the repositories need; satisfied by
// both *pgxpool.Pool and a pgx.Tx, so callers can pass either a pool
// or an in-flight transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles a pool and every repository over it.
type Store struct {
	Pool *pgxpool.Pool

	Labs         *LabRepo
	Nodes        *NodeRepo
	NodeStates   *NodeStateRepo
	Links        *LinkRepo
	LinkStates   *LinkStateRepo
	Reservations *ReservationRepo
	Hosts        *HostRepo
	Placements   *PlacementRepo
	VxlanTunnels *VxlanTunnelRepo
	InterfaceMap *InterfaceMappingRepo
	Jobs         *JobRepo
}

// NewStore wires every repository against the same pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Pool:         pool,
		Labs:         &LabRepo{db: pool},
		Nodes:        &NodeRepo{db: pool},
		NodeStates:   &NodeStateRepo{db: pool},
		Links:        &LinkRepo{db: pool},
		LinkStates:   &LinkStateRepo{db: pool},
		Reservations: &ReservationRepo{db: pool},
		Hosts:        &HostRepo{db: pool},
		Placements:   &PlacementRepo{db: pool},
		VxlanTunnels: &VxlanTunnelRepo{db: pool},
		InterfaceMap: &InterfaceMappingRepo{db: pool},
		Jobs:         &JobRepo{db: pool},
	}
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any returned error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
