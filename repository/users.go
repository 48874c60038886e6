package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catalogadmin/model"
	"catalogadmin/rbac"
	"catalogadmin/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

// DefaultProfileRole is given to profiles created on first login.
const DefaultProfileRole = rbac.RoleEditor

type UserRepo struct {
	MongoCollection *mongo.Collection
}

func NewUserRepo(db *mongo.Database, collection string) *UserRepo {
	return &UserRepo{MongoCollection: db.Collection(collection)}
}

func (r *UserRepo) AddUser(ctx context.Context, user *model.User) error {
	timer := utils.TrackDBOperation("insert", "users")
	defer timer.ObserveDuration()

	if user.UserID == "" || user.Email == "" {
		utils.TrackError("database", "invalid_user_data")
		return errors.New("user id and email required")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := r.MongoCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateUser
		}
		utils.TrackError("database", "user_creation_failed")
		return fmt.Errorf("failed to add user to database: %w", err)
	}
	return nil
}

// FindUser returns nil, nil when no user has userID.
func (r *UserRepo) FindUser(ctx context.Context, userID string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *UserRepo) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"email": utils.NormalizeEmail(email)})
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var user model.User
	err := r.MongoCollection.FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		utils.TrackError("database", "user_lookup_error")
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}

// EnsureProfile creates the profile of id on first sight. A profile that was
// provisioned under the same email but another id is taken over, keeping its
// role, active flag and display name.
func (r *UserRepo) EnsureProfile(ctx context.Context, id rbac.Identity) error {
	existing, err := r.FindUser(ctx, id.UserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	timer := utils.TrackDBOperation("upsert", "users")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	now := time.Now()
	email := utils.NormalizeEmail(id.Email)

	if email != "" {
		update := bson.M{"$set": bson.M{"user_id": id.UserID, "updated_at": now}}
		res, err := r.MongoCollection.UpdateOne(ctx, bson.M{"email": email}, update)
		if err != nil {
			utils.TrackError("database", "profile_migration_failed")
			return fmt.Errorf("failed to migrate profile: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}

	profile := model.User{
		UserID:      id.UserID,
		Email:       email,
		DisplayName: id.DisplayName,
		Role:        string(DefaultProfileRole),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = r.MongoCollection.UpdateOne(ctx,
		bson.M{"user_id": id.UserID},
		bson.M{"$setOnInsert": profile},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		utils.TrackError("database", "profile_creation_failed")
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *UserRepo) RoleByUserID(ctx context.Context, userID string) (string, error) {
	user, err := r.FindUser(ctx, userID)
	if err != nil || user == nil {
		return "", err
	}
	return user.Role, nil
}

func (r *UserRepo) RoleByEmail(ctx context.Context, email string) (string, error) {
	user, err := r.FindUserByEmail(ctx, email)
	if err != nil || user == nil {
		return "", err
	}
	return user.Role, nil
}

// ListUsers returns all profiles ordered by email.
func (r *UserRepo) ListUsers(ctx context.Context) ([]*model.User, error) {
	timer := utils.TrackDBOperation("find", "users")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"email": 1}))
	if err != nil {
		utils.TrackError("database", "user_list_failed")
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []*model.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, userID, role string) error {
	return r.set(ctx, userID, "role_update_failed", bson.M{"role": role})
}

func (r *UserRepo) UpdateActive(ctx context.Context, userID string, active bool) error {
	return r.set(ctx, userID, "active_update_failed", bson.M{"active": active})
}

func (r *UserRepo) UpdateDisplayName(ctx context.Context, userID, displayName string) error {
	return r.set(ctx, userID, "display_name_update_failed", bson.M{"display_name": displayName})
}

func (r *UserRepo) UpdateUserPassword(ctx context.Context, userID, hashedPassword string) error {
	if hashedPassword == "" {
		utils.TrackError("database", "invalid_password_hash")
		return errors.New("password hashing error")
	}
	return r.set(ctx, userID, "password_update_failed", bson.M{
		"password":             hashedPassword,
		"last_password_change": time.Now(),
	})
}

// SetPendingTwoFactor stores a secret that is not yet enabled.
func (r *UserRepo) SetPendingTwoFactor(ctx context.Context, userID, secret string) error {
	return r.set(ctx, userID, "2fa_setup_failed", bson.M{
		"two_factor_secret":  secret,
		"two_factor_enabled": false,
	})
}

func (r *UserRepo) Enable2FAWithRecoveryCodes(ctx context.Context, userID string, recoveryCodes []string) error {
	return r.set(ctx, userID, "2fa_enable_failed", bson.M{
		"two_factor_enabled": true,
		"recovery_codes":     recoveryCodes,
	})
}

func (r *UserRepo) UpdateRecoveryCodes(ctx context.Context, userID string, codes []string) error {
	return r.set(ctx, userID, "recovery_codes_update_failed", bson.M{"recovery_codes": codes})
}

func (r *UserRepo) Disable2FA(ctx context.Context, userID string) error {
	return r.set(ctx, userID, "2fa_disable_failed", bson.M{
		"two_factor_secret":  "",
		"two_factor_enabled": false,
		"recovery_codes":     nil,
	})
}

func (r *UserRepo) set(ctx context.Context, userID, failure string, fields bson.M) error {
	timer := utils.TrackDBOperation("update", "users")
	defer timer.ObserveDuration()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	fields["updated_at"] = time.Now()
	result, err := r.MongoCollection.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": fields})
	if err != nil {
		utils.TrackError("database", failure)
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
