package entity

import "time"

// User is owned by the identity subsystem. The execution pipeline only reads
// the encrypted exchange credential pair by user id.
type User struct {
	ID                   string    `db:"id" json:"id"`
	Email                string    `db:"email" json:"email"`
	PasswordHash         string    `db:"password_hash" json:"-"`
	ExchangeAPIKeyEnc    string    `db:"exchange_api_key_enc" json:"-"`
	ExchangeAPISecretEnc string    `db:"exchange_api_secret_enc" json:"-"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
}

func (User) TableName() string {
	return "users"
}

// UserCredentials is the encrypted exchange credential pair at rest.
type UserCredentials struct {
	UserID       string `db:"id"`
	APIKeyEnc    string `db:"exchange_api_key_enc"`
	APISecretEnc string `db:"exchange_api_secret_enc"`
}
