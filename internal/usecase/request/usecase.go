package request

import (
	"context"

	domain "timeaway-backend/internal/domain/request"
)

const (
	MsgUpdated   = "request updated"
	MsgNoChanges = "no changes applied"
)

type Usecase struct{ repo domain.Repository }

func NewUsecase(r domain.Repository) *Usecase { return &Usecase{repo: r} }

func (u *Usecase) Create(ctx context.Context, in CreateRequestInput) (*CreateResult, error) {
	r := &domain.Request{
		Name:          in.Name,
		Email:         in.Email,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		ChargeAgainst: in.ChargeAgainst,
		Manager:       in.Manager,
		Status:        in.Status,
	}
	r.Normalize()

	newID, err := u.repo.Insert(ctx, r)
	if err != nil {
		return nil, err
	}
	r.ID = newID
	return &CreateResult{ID: newID, Request: toDTO(r)}, nil
}

func (u *Usecase) Get(ctx context.Context, id string) (*RequestDTO, error) {
	r, err := u.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(r)
	return &dto, nil
}

// List returns every request, or those in in.Status. A positive Limit caps
// the result either way.
func (u *Usecase) List(ctx context.Context, in ListInput) ([]RequestDTO, error) {
	var (
		rs  []*domain.Request
		err error
	)
	if in.Status != nil {
		rs, err = u.repo.FindByStatus(ctx, *in.Status, in.Limit)
	} else {
		rs, err = u.repo.FindAll(ctx)
		if err == nil && in.Limit > 0 && len(rs) > in.Limit {
			rs = rs[:in.Limit]
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]RequestDTO, 0, len(rs))
	for _, r := range rs {
		out = append(out, toDTO(r))
	}
	return out, nil
}

// Update applies the fields present in patch. An empty patch issues no write
// but still reports a missing or malformed id.
func (u *Usecase) Update(ctx context.Context, id string, patch domain.UpdateRequest) (*UpdateResult, error) {
	ws := domain.Merge(nil, patch)
	if ws.Empty() {
		if _, err := u.repo.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return &UpdateResult{Message: MsgNoChanges}, nil
	}

	n, err := u.repo.ApplyPatch(ctx, id, ws)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return &UpdateResult{Message: MsgNoChanges}, nil
	}
	return &UpdateResult{Updated: true, Modified: n, Message: MsgUpdated}, nil
}

func (u *Usecase) Delete(ctx context.Context, id string) error {
	return u.repo.Delete(ctx, id)
}
