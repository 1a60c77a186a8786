package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/krobus00/trading-service/internal/entity"
)

// UserCredentialRepository reads the encrypted exchange credential pair
// owned by the identity subsystem. The pipeline never writes users.
type UserCredentialRepository struct {
	db *sqlx.DB
}

func NewUserCredentialRepository(db *sqlx.DB) *UserCredentialRepository {
	return &UserCredentialRepository{db: db}
}

func (r *UserCredentialRepository) GetCredentials(ctx context.Context, userID string) (*entity.UserCredentials, error) {
	var credentials entity.UserCredentials
	err := r.db.GetContext(ctx, &credentials, "SELECT id, exchange_api_key_enc, exchange_api_secret_enc FROM users WHERE id = $1", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &credentials, nil
}
