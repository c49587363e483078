package visibility

import (
	"context"

	"github.com/google/uuid"

	"github.com/fasehq/fase-server/pkg/model"
)

// Requester identifies the authenticated caller. It is carried by value from
// the auth middleware into every core call; there is no ambient session
// state.
type Requester struct {
	UserID    uuid.UUID
	Role      model.Role
	CompanyID uuid.UUID
}

// UserRef is the projection exposed to viewable-user listings.
type UserRef struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Directory is the read-only user lookup the filter runs against.
type Directory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListAllUsers(ctx context.Context) ([]model.User, error)
	ListSupervisees(ctx context.Context, supervisorID, companyID uuid.UUID) ([]model.User, error)
}

// Filter computes the set of users whose records a requester may read. It is
// a pure read; results are recomputed on every call so supervisor edge
// changes are visible immediately.
type Filter struct {
	directory Directory
}

func NewFilter(directory Directory) *Filter {
	return &Filter{directory: directory}
}

// ViewableUsers resolves the requester's visibility set as an ordered list.
// The policy is a total function over the closed role enum:
//
//	ADMIN, SUPERADMIN  -> every user
//	SUPERVISOR         -> self plus direct supervisees
//	USER               -> self only
func (f *Filter) ViewableUsers(ctx context.Context, requester Requester) ([]UserRef, error) {
	if requester.Role.IsAdmin() {
		users, err := f.directory.ListAllUsers(ctx)
		if err != nil {
			return nil, err
		}
		return toRefs(users), nil
	}

	self, err := f.directory.GetUser(ctx, requester.UserID)
	if err != nil {
		return nil, err
	}
	refs := []UserRef{{ID: self.ID, Name: self.Name, Email: self.Email}}

	if requester.Role == model.RoleSupervisor {
		supervisees, err := f.directory.ListSupervisees(ctx, requester.UserID, requester.CompanyID)
		if err != nil {
			return nil, err
		}
		refs = append(refs, toRefs(supervisees)...)
	}

	return refs, nil
}

// ViewableUserIDs is ViewableUsers reduced to ids.
func (f *Filter) ViewableUserIDs(ctx context.Context, requester Requester) ([]uuid.UUID, error) {
	refs, err := f.ViewableUsers(ctx, requester)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

// CanView reports whether the requester may read userID's records.
func (f *Filter) CanView(ctx context.Context, requester Requester, userID uuid.UUID) (bool, error) {
	if requester.Role.IsAdmin() || requester.UserID == userID {
		return true, nil
	}
	if requester.Role != model.RoleSupervisor {
		return false, nil
	}
	supervisees, err := f.directory.ListSupervisees(ctx, requester.UserID, requester.CompanyID)
	if err != nil {
		return false, err
	}
	for _, user := range supervisees {
		if user.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

func toRefs(users []model.User) []UserRef {
	refs := make([]UserRef, 0, len(users))
	for _, user := range users {
		refs = append(refs, UserRef{ID: user.ID, Name: user.Name, Email: user.Email})
	}
	return refs
}
