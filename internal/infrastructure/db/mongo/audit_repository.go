package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

const auditCollection = "login_audit"

// AuditRepository appends immutable login-attempt records. Insert-only: no
// update or delete path exists.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

type auditDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AccountID primitive.ObjectID `bson:"account_id"`
	IP        string             `bson:"ip"`
	UserAgent string             `bson:"user_agent"`
	Success   bool               `bson:"success"`
	Device    string             `bson:"device"`
	Browser   string             `bson:"browser"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Record appends one audit entry.
func (r *AuditRepository) Record(ctx context.Context, rec *domain.LoginAuditRecord) error {
	oid, err := primitive.ObjectIDFromHex(rec.AccountID)
	if err != nil {
		return fmt.Errorf("audit record: bad account id %q: %w", rec.AccountID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = r.coll.InsertOne(ctx, auditDoc{
		AccountID: oid,
		IP:        rec.IP,
		UserAgent: rec.UserAgent,
		Success:   rec.Success,
		Device:    string(rec.Device),
		Browser:   rec.Browser,
		CreatedAt: rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListRecentByAccount returns up to limit records for one account, newest
// first.
func (r *AuditRepository) ListRecentByAccount(ctx context.Context, accountID string, limit int) ([]domain.LoginAuditRecord, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.M{"account_id": oid}, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []domain.LoginAuditRecord
	for cursor.Next(ctx) {
		var doc auditDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode audit record: %w", err)
		}
		records = append(records, domain.LoginAuditRecord{
			ID:        doc.ID.Hex(),
			AccountID: doc.AccountID.Hex(),
			IP:        doc.IP,
			UserAgent: doc.UserAgent,
			Success:   doc.Success,
			Device:    domain.DeviceType(doc.Device),
			Browser:   doc.Browser,
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}

// EnsureIndexes backs the newest-first per-account read path.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	return nil
}
