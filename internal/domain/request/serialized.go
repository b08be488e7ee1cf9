package request

import (
	"context"
	"sync"
)

// Serialize wraps repo so that every call holds one process-wide lock. Build
// it once at startup and share the result between the API and the
// reconciler.
func Serialize(repo Repository) Repository {
	return &serializedRepo{next: repo}
}

type serializedRepo struct {
	mu   sync.Mutex
	next Repository
}

func (s *serializedRepo) FindByID(ctx context.Context, id string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.FindByID(ctx, id)
}

func (s *serializedRepo) FindAll(ctx context.Context) ([]*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.FindAll(ctx)
}

func (s *serializedRepo) FindByStatus(ctx context.Context, status Status, limit int) ([]*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.FindByStatus(ctx, status, limit)
}

func (s *serializedRepo) Insert(ctx context.Context, r *Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Insert(ctx, r)
}

func (s *serializedRepo) ApplyPatch(ctx context.Context, id string, ws WriteSet) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.ApplyPatch(ctx, id, ws)
}

func (s *serializedRepo) TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.TransitionStatus(ctx, id, from, to)
}

func (s *serializedRepo) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.Delete(ctx, id)
}
