package mongostore

import (
	"context"
	"errors"
	"fmt"

	domain "timeaway-backend/internal/domain/request"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const DefaultCollection = "requests"

type requestDoc struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	Name          string        `bson:"name"`
	Email         string        `bson:"email"`
	StartDate     string        `bson:"start_date"`
	EndDate       string        `bson:"end_date"`
	StartTime     string        `bson:"start_time"`
	EndTime       string        `bson:"end_time"`
	ChargeAgainst string        `bson:"charge_against"`
	Manager       string        `bson:"manager"`
	Status        string        `bson:"status"`
}

func (d *requestDoc) toDomain() *domain.Request {
	return &domain.Request{
		ID:            d.ID.Hex(),
		Name:          d.Name,
		Email:         d.Email,
		StartDate:     d.StartDate,
		EndDate:       d.EndDate,
		StartTime:     d.StartTime,
		EndTime:       d.EndTime,
		ChargeAgainst: domain.ChargeAgainst(d.ChargeAgainst),
		Manager:       d.Manager,
		Status:        domain.Status(d.Status),
	}
}

func fromDomain(r *domain.Request) *requestDoc {
	return &requestDoc{
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

func parseID(s string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(s)
	if err != nil {
		return bson.ObjectID{}, domain.ErrInvalidID
	}
	return oid, nil
}

func byID(oid bson.ObjectID) bson.D { return bson.D{{Key: "_id", Value: oid}} }

func setUpdate(ws domain.WriteSet) bson.D {
	set := make(bson.D, 0, len(ws))
	for _, k := range ws.Keys() {
		set = append(set, bson.E{Key: k, Value: ws[k]})
	}
	return bson.D{{Key: "$set", Value: set}}
}

type RequestRepository struct{ coll *mongo.Collection }

var _ domain.Repository = (*RequestRepository)(nil)

func NewRequestRepository(coll *mongo.Collection) *RequestRepository {
	return &RequestRepository{coll: coll}
}

// EnsureIndexes creates the index the reconciler scans with.
func (r *RequestRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: domain.FieldStatus, Value: 1}, {Key: domain.FieldEndDate, Value: 1}},
		Options: options.Index().SetName("idx_status_end_date"),
	})
	if err != nil {
		return fmt.Errorf("create requests index: %w", err)
	}
	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, reqID string) (*domain.Request, error) {
	oid, err := parseID(reqID)
	if err != nil {
		return nil, err
	}
	var doc requestDoc
	err = r.coll.FindOne(ctx, byID(oid)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find request %s: %w", reqID, err)
	}
	return doc.toDomain(), nil
}

func (r *RequestRepository) FindAll(ctx context.Context) ([]*domain.Request, error) {
	return r.find(ctx, bson.D{}, 0)
}

func (r *RequestRepository) FindByStatus(ctx context.Context, status domain.Status, limit int) ([]*domain.Request, error) {
	return r.find(ctx, bson.D{{Key: domain.FieldStatus, Value: status.String()}}, limit)
}

func (r *RequestRepository) find(ctx context.Context, filter bson.D, limit int) ([]*domain.Request, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find requests: %w", err)
	}
	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode requests: %w", err)
	}
	out := make([]*domain.Request, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toDomain())
	}
	return out, nil
}

func (r *RequestRepository) Insert(ctx context.Context, req *domain.Request) (string, error) {
	doc := fromDomain(req)
	doc.ID = bson.NewObjectID()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert request: %w", err)
	}
	return doc.ID.Hex(), nil
}

func (r *RequestRepository) ApplyPatch(ctx context.Context, reqID string, ws domain.WriteSet) (int64, error) {
	oid, err := parseID(reqID)
	if err != nil {
		return 0, err
	}
	if ws.Empty() {
		// $set with no fields is rejected by the server; only check existence
		return 0, r.exists(ctx, oid)
	}
	res, err := r.coll.UpdateOne(ctx, byID(oid), setUpdate(ws))
	if err != nil {
		return 0, fmt.Errorf("update request %s: %w", reqID, err)
	}
	if res.MatchedCount == 0 {
		return 0, domain.ErrNotFound
	}
	return res.ModifiedCount, nil
}

func (r *RequestRepository) TransitionStatus(ctx context.Context, reqID string, from, to domain.Status) (bool, error) {
	oid, err := parseID(reqID)
	if err != nil {
		return false, err
	}
	filter := bson.D{{Key: "_id", Value: oid}, {Key: domain.FieldStatus, Value: from.String()}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: domain.FieldStatus, Value: to.String()}}}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("transition request %s: %w", reqID, err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	return false, r.exists(ctx, oid)
}

func (r *RequestRepository) exists(ctx context.Context, oid bson.ObjectID) error {
	err := r.coll.FindOne(ctx, byID(oid)).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find request %s: %w", oid.Hex(), err)
	}
	return nil
}

func (r *RequestRepository) Delete(ctx context.Context, reqID string) error {
	oid, err := parseID(reqID)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, byID(oid))
	if err != nil {
		return fmt.Errorf("delete request %s: %w", reqID, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
