package repository

import (
	"context"

	"github.com/google/uuid"

	"dialogue-backend/internal/apperrors"
	"dialogue-backend/internal/models"
)

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

// Create provisions a user. A zero ID is replaced with a fresh one so ids
// issued by the identity service can be mirrored as-is.
func (r *UserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := r.db.QueryRow(ctx,
		"INSERT INTO users (id, username) VALUES ($1, $2) RETURNING created_at",
		user.ID, user.Username,
	).Scan(&user.CreatedAt)
	if isUniqueViolation(err) {
		return apperrors.NewValidationError("username", "A user with that username already exists.")
	}
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRow(ctx,
		"SELECT id, username, created_at FROM users WHERE id = $1", id,
	).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if err != nil {
		return nil, mapError(err, "User not found")
	}
	return user, nil
}
