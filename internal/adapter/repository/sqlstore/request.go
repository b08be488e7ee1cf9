package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "timeaway-backend/internal/domain/request"
	"timeaway-backend/pkg/id"

	"gorm.io/gorm"
)

// requestRecord is the row model. The public id lives in request_id so the
// numeric primary key never leaves the store.
type requestRecord struct {
	ID            uint64    `gorm:"primaryKey;column:id"`
	RequestID     string    `gorm:"size:32;uniqueIndex:ux_time_away_requests_request_id;column:request_id"`
	Name          string    `gorm:"size:255;column:name"`
	Email         string    `gorm:"size:255;column:email"`
	StartDate     string    `gorm:"size:10;column:start_date"`
	EndDate       string    `gorm:"size:10;column:end_date"`
	StartTime     string    `gorm:"size:255;column:start_time"`
	EndTime       string    `gorm:"size:255;column:end_time"`
	ChargeAgainst string    `gorm:"size:32;column:charge_against"`
	Manager       string    `gorm:"size:255;column:manager"`
	Status        string    `gorm:"size:16;index:idx_time_away_requests_status;column:status"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (requestRecord) TableName() string { return "time_away_requests" }

func (rec *requestRecord) toDomain() *domain.Request {
	return &domain.Request{
		ID:            rec.RequestID,
		Name:          rec.Name,
		Email:         rec.Email,
		StartDate:     rec.StartDate,
		EndDate:       rec.EndDate,
		StartTime:     rec.StartTime,
		EndTime:       rec.EndTime,
		ChargeAgainst: domain.ChargeAgainst(rec.ChargeAgainst),
		Manager:       rec.Manager,
		Status:        domain.Status(rec.Status),
	}
}

func fromDomain(r *domain.Request) *requestRecord {
	return &requestRecord{
		RequestID:     r.ID,
		Name:          r.Name,
		Email:         r.Email,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		ChargeAgainst: r.ChargeAgainst.String(),
		Manager:       r.Manager,
		Status:        r.Status.String(),
	}
}

// AutoMigrate creates or updates the requests table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&requestRecord{})
}

type RequestRepository struct{ db *gorm.DB }

var _ domain.Repository = (*RequestRepository)(nil)

func NewRequestRepository(db *gorm.DB) *RequestRepository { return &RequestRepository{db: db} }

func (r *RequestRepository) FindByID(ctx context.Context, reqID string) (*domain.Request, error) {
	if !id.Valid32(reqID) {
		return nil, domain.ErrInvalidID
	}
	rec, err := findRecord(r.db.WithContext(ctx), reqID)
	if err != nil {
		return nil, err
	}
	return rec.toDomain(), nil
}

func (r *RequestRepository) FindAll(ctx context.Context) ([]*domain.Request, error) {
	var recs []requestRecord
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("find all requests: %w", err)
	}
	return toDomainSlice(recs), nil
}

func (r *RequestRepository) FindByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Request, error) {
	q := r.db.WithContext(ctx).Where("status = ?", status.String()).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recs []requestRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("find requests by status %s: %w", status, err)
	}
	return toDomainSlice(recs), nil
}

func (r *RequestRepository) Insert(ctx context.Context, req *domain.Request) (string, error) {
	rec := fromDomain(req)
	rec.RequestID = id.NewID32()
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", fmt.Errorf("insert request: %w", err)
	}
	return rec.RequestID, nil
}

// ApplyPatch loads the row and writes only when ws changes something, so the
// returned count means "modified" on every dialect.
func (r *RequestRepository) ApplyPatch(ctx context.Context, reqID string, ws domain.WriteSet) (int64, error) {
	if !id.Valid32(reqID) {
		return 0, domain.ErrInvalidID
	}
	var modified int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := findRecord(tx, reqID)
		if err != nil {
			return err
		}
		if ws.Empty() {
			return nil
		}
		before := rec.toDomain()
		after := *before
		ws.ApplyTo(&after)
		if after == *before {
			return nil
		}
		res := tx.Model(&requestRecord{}).Where("id = ?", rec.ID).Updates(map[string]any(ws))
		if res.Error != nil {
			return fmt.Errorf("update request %s: %w", reqID, res.Error)
		}
		modified = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return modified, nil
}

// TransitionStatus is a conditional UPDATE on the current status. When no row
// matched it looks the id up again to tell a missing row from a changed one.
func (r *RequestRepository) TransitionStatus(ctx context.Context, reqID string, from, to domain.Status) (bool, error) {
	if !id.Valid32(reqID) {
		return false, domain.ErrInvalidID
	}
	db := r.db.WithContext(ctx)
	res := db.Model(&requestRecord{}).
		Where("request_id = ? AND status = ?", reqID, from.String()).
		Update(domain.FieldStatus, to.String())
	if res.Error != nil {
		return false, fmt.Errorf("transition request %s: %w", reqID, res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if _, err := findRecord(db, reqID); err != nil {
		return false, err
	}
	return false, nil
}

func (r *RequestRepository) Delete(ctx context.Context, reqID string) error {
	if !id.Valid32(reqID) {
		return domain.ErrInvalidID
	}
	res := r.db.WithContext(ctx).Where("request_id = ?", reqID).Delete(&requestRecord{})
	if res.Error != nil {
		return fmt.Errorf("delete request %s: %w", reqID, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func findRecord(db *gorm.DB, reqID string) (*requestRecord, error) {
	var rec requestRecord
	err := db.Where("request_id = ?", reqID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find request %s: %w", reqID, err)
	}
	return &rec, nil
}

func toDomainSlice(recs []requestRecord) []*domain.Request {
	out := make([]*domain.Request, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toDomain())
	}
	return out
}
