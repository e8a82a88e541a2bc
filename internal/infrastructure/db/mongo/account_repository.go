package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/researchmatch/identity-service/internal/core/domain"
)

func uniqueIndex(name string) *options.IndexOptions {
	return options.Index().SetUnique(true).SetName(name)
}

const (
	accountsCollection = "accounts"
	profilesCollection = "profiles"
)

// AccountRepository persists accounts and role profiles in MongoDB.
type AccountRepository struct {
	db       *mongo.Database
	accounts *mongo.Collection
	profiles *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		db:       db,
		accounts: db.Collection(accountsCollection),
		profiles: db.Collection(profilesCollection),
	}
}

type accountDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Role         string             `bson:"role"`
	FirstName    string             `bson:"first_name"`
	LastName     string             `bson:"last_name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

// profileDoc holds both variants; role discriminates which fields are set.
type profileDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AccountID primitive.ObjectID `bson:"account_id"`
	Role      string             `bson:"role"`

	FacultyID      string    `bson:"faculty_id,omitempty"`
	Specialization string    `bson:"specialization,omitempty"`
	DateOfJoining  time.Time `bson:"date_of_joining,omitempty"`
	DateOfBirth    time.Time `bson:"date_of_birth,omitempty"`

	RegistrationNumber string  `bson:"registration_number,omitempty"`
	Year               int     `bson:"year,omitempty"`
	CGPA               float64 `bson:"cgpa"`

	Department string `bson:"department"`
}

// CreateAccountWithProfile writes both documents inside one multi-document
// transaction: either both are durably committed or neither is. Unique-index
// violations map to the matching conflict error; the email index remains the
// authoritative guard under concurrent registration of the same address.
func (r *AccountRepository) CreateAccountWithProfile(ctx context.Context, account *domain.Account, profile domain.RoleProfile) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	session, err := r.db.Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	accountID := primitive.NewObjectID()
	aDoc := accountDoc{
		ID:           accountID,
		Role:         string(account.Role),
		FirstName:    account.FirstName,
		LastName:     account.LastName,
		Email:        account.Email,
		PasswordHash: account.PasswordHash,
		CreatedAt:    account.CreatedAt,
		UpdatedAt:    account.UpdatedAt,
	}
	pDoc := profileToDoc(accountID, profile)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.accounts.InsertOne(sc, aDoc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrEmailInUse
			}
			return nil, fmt.Errorf("insert account: %w", err)
		}
		if _, err := r.profiles.InsertOne(sc, pDoc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, domain.ErrDuplicateProfileKey
			}
			return nil, fmt.Errorf("insert profile: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailInUse) || errors.Is(err, domain.ErrDuplicateProfileKey) {
			return nil, err
		}
		return nil, fmt.Errorf("create account with profile: %w", err)
	}

	created := *account
	created.ID = accountID.Hex()
	return &created, nil
}

func (r *AccountRepository) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	if err := r.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return accountFromDoc(doc), nil
}

func (r *AccountRepository) FindAccountByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc accountDoc
	if err := r.accounts.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return accountFromDoc(doc), nil
}

func (r *AccountRepository) FindProfile(ctx context.Context, accountID string, role domain.Role) (domain.RoleProfile, error) {
	oid, err := primitive.ObjectIDFromHex(accountID)
	if err != nil {
		return nil, domain.ErrProfileNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc profileDoc
	if err := r.profiles.FindOne(ctx, bson.M{"account_id": oid, "role": string(role)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return profileFromDoc(doc)
}

// EnsureIndexes creates the unique constraints the store contract relies on.
// Partial indexes keep the two business keys independent of each other.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.accounts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: uniqueIndex("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("accounts indexes: %w", err)
	}

	_, err = r.profiles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "faculty_id", Value: 1}},
			Options: uniqueIndex("faculty_id_unique").
				SetPartialFilterExpression(bson.M{"role": string(domain.RoleFaculty)}),
		},
		{
			Keys: bson.D{{Key: "registration_number", Value: 1}},
			Options: uniqueIndex("registration_number_unique").
				SetPartialFilterExpression(bson.M{"role": string(domain.RoleStudent)}),
		},
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}, {Key: "role", Value: 1}},
			Options: uniqueIndex("account_role_unique"),
		},
	})
	if err != nil {
		return fmt.Errorf("profiles indexes: %w", err)
	}
	return nil
}

func accountFromDoc(doc accountDoc) *domain.Account {
	return &domain.Account{
		ID:           doc.ID.Hex(),
		Role:         domain.Role(doc.Role),
		FirstName:    doc.FirstName,
		LastName:     doc.LastName,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func profileToDoc(accountID primitive.ObjectID, profile domain.RoleProfile) profileDoc {
	doc := profileDoc{
		ID:        primitive.NewObjectID(),
		AccountID: accountID,
		Role:      string(profile.ProfileRole()),
	}
	switch p := profile.(type) {
	case domain.FacultyProfile:
		doc.FacultyID = p.FacultyID
		doc.Department = p.Department
		doc.Specialization = p.Specialization
		doc.DateOfJoining = p.DateOfJoining
		doc.DateOfBirth = p.DateOfBirth
	case domain.StudentProfile:
		doc.RegistrationNumber = p.RegistrationNumber
		doc.Department = p.Department
		doc.Year = p.Year
		doc.CGPA = p.CGPA
	}
	return doc
}

func profileFromDoc(doc profileDoc) (domain.RoleProfile, error) {
	switch domain.Role(doc.Role) {
	case domain.RoleFaculty:
		return domain.FacultyProfile{
			FacultyID:      doc.FacultyID,
			Department:     doc.Department,
			Specialization: doc.Specialization,
			DateOfJoining:  doc.DateOfJoining,
			DateOfBirth:    doc.DateOfBirth,
		}, nil
	case domain.RoleStudent:
		return domain.StudentProfile{
			RegistrationNumber: doc.RegistrationNumber,
			Department:         doc.Department,
			Year:               doc.Year,
			CGPA:               doc.CGPA,
		}, nil
	default:
		return nil, fmt.Errorf("profile %s has unknown role %q", doc.ID.Hex(), doc.Role)
	}
}
