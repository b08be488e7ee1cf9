package request

import "context"

// Repository is the persistence port used by the API usecase and the
// reconciler. Implementations must be safe for concurrent use, or be wrapped
// with Serialize.
type Repository interface {
	// FindByID returns ErrInvalidID for ids the store cannot parse and
	// ErrNotFound when no record matches.
	FindByID(ctx context.Context, id string) (*Request, error)

	FindAll(ctx context.Context) ([]*Request, error)

	// FindByStatus returns at most limit records; limit <= 0 means no cap.
	FindByStatus(ctx context.Context, status Status, limit int) ([]*Request, error)

	// Insert stores r and returns the assigned id.
	Insert(ctx context.Context, r *Request) (string, error)

	// ApplyPatch writes only the keys in ws. It returns ErrNotFound when the
	// id matches nothing and (0, nil) for an empty write set.
	ApplyPatch(ctx context.Context, id string, ws WriteSet) (int64, error)

	// TransitionStatus sets the status to `to` only if it is currently
	// `from`, in one conditional write. It reports false with a nil error when
	// the record exists but holds another status.
	TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error)

	Delete(ctx context.Context, id string) error
}
