package requestmock

import (
	"context"

	domain "timeaway-backend/internal/domain/request"
)

// Ensure compile-time compliance
var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset finders return context.Canceled; unset writers are no-ops.
type Repo struct {
	FindByIDFn     func(ctx context.Context, id string) (*domain.Request, error)
	FindAllFn      func(ctx context.Context) ([]*domain.Request, error)
	FindByStatusFn func(ctx context.Context, status domain.Status, limit int) ([]*domain.Request, error)
	InsertFn       func(ctx context.Context, r *domain.Request) (string, error)
	ApplyPatchFn   func(ctx context.Context, id string, ws domain.WriteSet) (int64, error)
	TransitionFn   func(ctx context.Context, id string, from, to domain.Status) (bool, error)
	DeleteFn       func(ctx context.Context, id string) error
}

func (m *Repo) FindByID(ctx context.Context, id string) (*domain.Request, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return nil, context.Canceled
}

func (m *Repo) FindAll(ctx context.Context) ([]*domain.Request, error) {
	if m.FindAllFn != nil {
		return m.FindAllFn(ctx)
	}
	return nil, context.Canceled
}

func (m *Repo) FindByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Request, error) {
	if m.FindByStatusFn != nil {
		return m.FindByStatusFn(ctx, status, limit)
	}
	return nil, context.Canceled
}

func (m *Repo) Insert(ctx context.Context, r *domain.Request) (string, error) {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, r)
	}
	return "", nil
}

func (m *Repo) ApplyPatch(ctx context.Context, id string, ws domain.WriteSet) (int64, error) {
	if m.ApplyPatchFn != nil {
		return m.ApplyPatchFn(ctx, id, ws)
	}
	return 0, nil
}

func (m *Repo) TransitionStatus(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	if m.TransitionFn != nil {
		return m.TransitionFn(ctx, id, from, to)
	}
	return false, nil
}

func (m *Repo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}
