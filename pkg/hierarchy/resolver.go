package hierarchy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fasehq/fase-server/pkg/model"
)

var (
	// ErrCycle is returned by Assign when the candidate supervisor is a
	// transitive supervisee of the target user within the company.
	ErrCycle = errors.New("supervisor assignment would create a cycle")

	// ErrNotMember is returned when either side of an assignment has no
	// membership row in the company.
	ErrNotMember = errors.New("user is not a member of the company")

	ErrSelfSupervision = errors.New("a user cannot supervise themselves")
)

// maxDepth caps chain traversal. The supervisor forest is expected to be
// shallow; anything deeper indicates corrupt data.
const maxDepth = 64

// Store is the membership state the resolver walks. WithTx must run fn
// against a transaction-bound Store so that a cycle check, the subsequent
// supervisor write and the audit append commit atomically.
type Store interface {
	Membership(ctx context.Context, userID, companyID uuid.UUID) (*model.UserCompany, error)
	Supervisees(ctx context.Context, supervisorID, companyID uuid.UUID) ([]model.User, error)
	SetSupervisor(ctx context.Context, userID, companyID uuid.UUID, supervisorID *uuid.UUID) error
	AppendLog(ctx context.Context, entry *model.ActivityLog) error
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Resolver answers direct-supervision queries and guards supervisor
// assignments against cycles in the per-company supervisor graph.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// IsSupervisorOf reports whether supervisorID is the direct supervisor of
// userID within the company. Transitive supervision does not count.
func (r *Resolver) IsSupervisorOf(ctx context.Context, supervisorID, userID, companyID uuid.UUID) (bool, error) {
	membership, err := r.store.Membership(ctx, userID, companyID)
	if err != nil {
		return false, err
	}
	return membership.SupervisorID != nil && *membership.SupervisorID == supervisorID, nil
}

// ListSupervisees returns the direct supervisees of supervisorID in the
// company, one level only.
func (r *Resolver) ListSupervisees(ctx context.Context, supervisorID, companyID uuid.UUID) ([]model.User, error) {
	return r.store.Supervisees(ctx, supervisorID, companyID)
}

// WouldCreateCycle walks the supervisor chain upward from the candidate
// within the company. Reaching targetUserID means assigning the candidate as
// the target's supervisor would close a loop. Revisiting an already-visited
// node without hitting the target terminates the walk and reports no new
// cycle: that path only occurs on corrupt data, and the visited set exists to
// guarantee termination, not to certify the existing graph.
func (r *Resolver) WouldCreateCycle(ctx context.Context, candidateSupervisorID, targetUserID, companyID uuid.UUID) (bool, error) {
	return r.wouldCreateCycle(ctx, r.store, candidateSupervisorID, targetUserID, companyID)
}

func (r *Resolver) wouldCreateCycle(ctx context.Context, store Store, candidateSupervisorID, targetUserID, companyID uuid.UUID) (bool, error) {
	if candidateSupervisorID == targetUserID {
		return true, nil
	}

	visited := map[uuid.UUID]struct{}{}
	current := candidateSupervisorID

	for depth := 0; depth < maxDepth; depth++ {
		if current == targetUserID {
			return true, nil
		}
		if _, seen := visited[current]; seen {
			return false, nil
		}
		visited[current] = struct{}{}

		membership, err := store.Membership(ctx, current, companyID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Dangling edge; the chain ends here.
				return false, nil
			}
			return false, err
		}
		if membership.SupervisorID == nil {
			return false, nil
		}
		current = *membership.SupervisorID
	}

	return false, nil
}

// Assign makes supervisorID the direct supervisor of targetUserID within
// companyID. The cycle check, the write and the audit entry (when non-nil)
// commit in one transaction; a failed append rolls the edge back.
func (r *Resolver) Assign(ctx context.Context, supervisorID, targetUserID, companyID uuid.UUID, entry *model.ActivityLog) error {
	if supervisorID == targetUserID {
		return ErrSelfSupervision
	}

	return r.store.WithTx(ctx, func(tx Store) error {
		if _, err := tx.Membership(ctx, targetUserID, companyID); err != nil {
			return wrapMembershipErr(err)
		}
		if _, err := tx.Membership(ctx, supervisorID, companyID); err != nil {
			return wrapMembershipErr(err)
		}

		cycle, err := r.wouldCreateCycle(ctx, tx, supervisorID, targetUserID, companyID)
		if err != nil {
			return err
		}
		if cycle {
			return ErrCycle
		}

		if err := tx.SetSupervisor(ctx, targetUserID, companyID, &supervisorID); err != nil {
			return err
		}
		if entry != nil {
			return tx.AppendLog(ctx, entry)
		}
		return nil
	})
}

// Clear removes the supervisor edge of targetUserID within companyID, with
// the audit entry (when non-nil) committing in the same transaction.
func (r *Resolver) Clear(ctx context.Context, targetUserID, companyID uuid.UUID, entry *model.ActivityLog) error {
	return r.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SetSupervisor(ctx, targetUserID, companyID, nil); err != nil {
			return err
		}
		if entry != nil {
			return tx.AppendLog(ctx, entry)
		}
		return nil
	})
}

func wrapMembershipErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotMember
	}
	return err
}
