package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/avolkov/accountd/internal/common"
	"github.com/avolkov/accountd/internal/server/models"
)

const collectionName = "Users"

// MongoRepository is the document-store backend. One document per account;
// the current refresh token lives inside the user document, so rotation is a
// single conditional UpdateOne.
type MongoRepository struct {
	coll *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(collectionName)}
}

// userDoc is the BSON shape of an account. Field names follow the collection
// schema; the domain model stays free of driver tags.
type userDoc struct {
	ID           bson.ObjectID  `bson:"_id,omitempty"`
	Name         string         `bson:"name"`
	Email        string         `bson:"email"`
	Password     string         `bson:"password"`
	IsAdmin      bool           `bson:"isAdmin"`
	ReferralCode string         `bson:"referralCode,omitempty"`
	ReferredBy   *bson.ObjectID `bson:"referredBy,omitempty"`
	RefreshToken *string        `bson:"refreshToken,omitempty"`
	CreatedAt    time.Time      `bson:"createdAt"`
	UpdatedAt    time.Time      `bson:"updatedAt"`
}

func (d *userDoc) toModel() *models.User {
	u := &models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		IsAdmin:      d.IsAdmin,
		ReferralCode: d.ReferralCode,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.ReferredBy != nil {
		u.ReferredBy = d.ReferredBy.Hex()
	}
	return u
}

// EnsureIndexes creates the uniqueness indexes the model relies on: email is
// always unique, referralCode only when present (partial index, so documents
// without a code do not collide).
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "referralCode", Value: 1}},
			Options: options.Index().SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "referralCode", Value: bson.D{{Key: "$type", Value: "string"}}}}),
		},
	})
	if err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	now := time.Now().UTC()
	doc := &userDoc{
		ID:           bson.NewObjectID(),
		Name:         user.Name,
		Email:        user.Email,
		Password:     user.PasswordHash,
		IsAdmin:      user.IsAdmin,
		ReferralCode: user.ReferralCode,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.ReferredBy != "" {
		oid, err := bson.ObjectIDFromHex(user.ReferredBy)
		if err != nil {
			return nil, fmt.Errorf("invalid referredBy id %q: %w", user.ReferredBy, err)
		}
		doc.ReferredBy = &oid
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc.toModel(), nil
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, common.ErrorNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.D) (*models.User, error) {
	doc := &userDoc{}
	if err := r.coll.FindOne(ctx, filter).Decode(doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) SetRefreshToken(ctx context.Context, id string, token *string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrorNotFound
	}

	var update bson.D
	if token != nil {
		update = bson.D{{Key: "$set", Value: bson.D{
			{Key: "refreshToken", Value: *token},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}}
	} else {
		update = bson.D{
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}},
			{Key: "$unset", Value: bson.D{{Key: "refreshToken", Value: ""}}},
		}
	}

	if _, err := r.coll.UpdateByID(ctx, oid, update); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *MongoRepository) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrorNotFound
	}

	// Conditional update: the filter matches only while oldToken is still the
	// stored value, so of two racing refresh calls exactly one wins.
	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "refreshToken", Value: oldToken},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "refreshToken", Value: newToken},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrRefreshTokenReused
	}
	return nil
}

func (r *MongoRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrorNotFound
	}

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "password", Value: passwordHash},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}

	res, err := r.coll.UpdateByID(ctx, oid, update)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *MongoRepository) UpdateProfile(ctx context.Context, id, name, email string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return common.ErrorNotFound
	}

	fields := bson.D{{Key: "updatedAt", Value: time.Now().UTC()}}
	if name != "" {
		fields = append(fields, bson.E{Key: "name", Value: name})
	}
	if email != "" {
		fields = append(fields, bson.E{Key: "email", Value: email})
	}

	res, err := r.coll.UpdateByID(ctx, oid, bson.D{{Key: "$set", Value: fields}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return common.ErrorConflict
		}
		return fmt.Errorf("db error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
