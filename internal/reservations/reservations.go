// Package reservations enforces the invariant that an (endpoint,
// interface) pair is claimed by at most one active link (spec §4.5),
// grounded on the upstream link_reservations.py claim/release/reconcile
// shape: a transactional claim that releases any prior reservation this
// link owned, inserts one row per endpoint, and resolves unique-constraint
// violations into a sorted list of conflicting link names.
package reservations

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/netlab-io/controller/internal/models"
	"github.com/netlab-io/controller/internal/persistence"
)

// Service claims, releases, and reconciles LinkEndpointReservation rows.
type Service struct {
	store      *persistence.Store
	normalizer Normalizer
}

// New constructs a Service. normalizer may be nil, in which case
// DefaultNormalizer is used.
func New(store *persistence.Store, normalizer Normalizer) *Service {
	if normalizer == nil {
		normalizer = DefaultNormalizer
	}
	return &Service{store: store, normalizer: normalizer}
}

// LinkNamer resolves a link id to its display name for conflict reporting;
// satisfied by persistence.LinkRepo in production, faked in tests.
type LinkNamer interface {
	Get(ctx context.Context, id string) (*models.Link, error)
}

// Claim atomically releases any prior reservation owned by link, inserts
// one row per endpoint, and reports success plus the sorted list of
// conflicting link names on a unique-constraint violation (spec §4.5,
// §8 boundary: "claim returns conflicting link names in sorted order").
// claim(L) then claim(L) leaves exactly two reservations (idempotent).
func (s *Service) Claim(ctx context.Context, link *models.Link, namer LinkNamer) (ok bool, conflicts []string, err error) {
	txErr := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM link_endpoint_reservations WHERE link_id = $1`, link.ID); err != nil {
			return fmt.Errorf("reservations: release prior: %w", err)
		}

		endpoints := []models.Endpoint{link.EndpointA, link.EndpointB}
		for _, ep := range endpoints {
			normalised := s.normalizer(ep.IfName)
			res := &models.LinkEndpointReservation{
				ID:               uuid.NewString(),
				LabID:            link.LabID,
				NodeID:           ep.NodeID,
				NormalisedIfName: normalised,
				LinkID:           link.ID,
			}
			// The insert runs under a savepoint so that a unique violation
			// leaves tx usable for the conflicting-name lookup below.
			sp, spErr := tx.Begin(ctx)
			if spErr != nil {
				return spErr
			}
			_, insErr := sp.Exec(ctx, `
				INSERT INTO link_endpoint_reservations (id, lab_id, node_id, normalised_if_name, link_id)
				VALUES ($1,$2,$3,$4,$5)`,
				res.ID, res.LabID, res.NodeID, res.NormalisedIfName, res.LinkID)
			if insErr != nil {
				_ = sp.Rollback(ctx)
				var pgErr *pgconn.PgError
				if errors.As(insErr, &pgErr) && pgErr.Code == "23505" {
					names, confErr := s.conflictingLinkNames(ctx, tx, link, namer)
					if confErr != nil {
						return confErr
					}
					conflicts = names
					return errConflict
				}
				return insErr
			}
			if err := sp.Commit(ctx); err != nil {
				return err
			}
		}
		ok = true
		return nil
	})

	if errors.Is(txErr, errConflict) {
		return false, conflicts, nil
	}
	if txErr != nil {
		return false, nil, txErr
	}
	return ok, nil, nil
}

var errConflict = errors.New("reservation conflict")

// conflictingLinkNames finds every other link already holding a
// reservation on either endpoint of link and returns their names sorted.
func (s *Service) conflictingLinkNames(ctx context.Context, tx pgx.Tx, link *models.Link, namer LinkNamer) ([]string, error) {
	seen := map[string]bool{}
	var names []string
	for _, ep := range []models.Endpoint{link.EndpointA, link.EndpointB} {
		normalised := s.normalizer(ep.IfName)
		rows, err := tx.Query(ctx, `
			SELECT DISTINCT link_id FROM link_endpoint_reservations
			WHERE lab_id = $1 AND node_id = $2 AND normalised_if_name = $3 AND link_id <> $4`,
			link.LabID, ep.NodeID, normalised, link.ID)
		if err != nil {
			return nil, err
		}
		var linkIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			linkIDs = append(linkIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, id := range linkIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			other, err := namer.Get(ctx, id)
			if err != nil {
				continue
			}
			names = append(names, other.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Release deletes every reservation owned by linkID.
func (s *Service) Release(ctx context.Context, linkID string) error {
	return s.store.Reservations.DeleteByLink(ctx, s.store.Pool, linkID)
}

// Sync claims link if desired is up, else releases it (spec §4.5).
func (s *Service) Sync(ctx context.Context, link *models.Link, desired models.LinkDesiredState, namer LinkNamer) (ok bool, conflicts []string, err error) {
	if desired == models.LinkDesiredUp {
		return s.Claim(ctx, link, namer)
	}
	return true, nil, s.Release(ctx, link.ID)
}

// ReconcileResult reports drift counts from a Reconcile pass.
type ReconcileResult struct {
	Dropped   int
	Reclaimed int
}

// Reconcile drops reservations whose link no longer exists or no longer
// desires up, then re-claims desired-up links missing reservations (spec
// §4.5). sync_link_endpoint_reservations converges to the desired set
// regardless of current state (spec §8 round-trip property).
func (s *Service) Reconcile(ctx context.Context, links []*models.Link, linkStates map[string]*models.LinkState, namer LinkNamer) (ReconcileResult, error) {
	var result ReconcileResult

	linkByID := make(map[string]*models.Link, len(links))
	for _, l := range links {
		linkByID[l.ID] = l
	}

	allReservations, err := s.store.Reservations.ListByLab(ctx, labIDOf(links))
	if err != nil {
		return result, err
	}

	byLink := map[string][]string{}
	for _, res := range allReservations {
		byLink[res.LinkID] = append(byLink[res.LinkID], res.ID)
	}

	for linkID := range byLink {
		link, exists := linkByID[linkID]
		desiredUp := exists && linkStates[linkID] != nil && linkStates[linkID].DesiredState == models.LinkDesiredUp
		if !exists || !desiredUp {
			if err := s.Release(ctx, linkID); err != nil {
				return result, err
			}
			result.Dropped++
		}
		_ = link
	}

	for _, link := range links {
		ls := linkStates[link.ID]
		if ls == nil || ls.DesiredState != models.LinkDesiredUp {
			continue
		}
		if len(byLink[link.ID]) == 2 {
			continue
		}
		ok, _, err := s.Claim(ctx, link, namer)
		if err != nil {
			return result, err
		}
		if ok {
			result.Reclaimed++
		}
	}

	return result, nil
}

func labIDOf(links []*models.Link) string {
	if len(links) == 0 {
		return ""
	}
	return links[0].LabID
}

// LegacyConflict directly compares endpoint tuples against other
// candidates on the same lab, for links that predate the reservation
// table migration (spec §4.5 "Legacy fallback").
func LegacyConflict(candidate *models.Link, others []*models.Link, normalizer Normalizer) []*models.Link {
	if normalizer == nil {
		normalizer = DefaultNormalizer
	}
	endpointKey := func(ep models.Endpoint) string {
		return ep.NodeID + ":" + normalizer(ep.IfName)
	}
	keys := map[string]bool{
		endpointKey(candidate.EndpointA): true,
		endpointKey(candidate.EndpointB): true,
	}

	var conflicts []*models.Link
	for _, other := range others {
		if other.ID == candidate.ID {
			continue
		}
		if keys[endpointKey(other.EndpointA)] || keys[endpointKey(other.EndpointB)] {
			conflicts = append(conflicts, other)
		}
	}
	return conflicts
}
