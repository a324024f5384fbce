package database

import (
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// gocql.UUID and uuid.UUID are both [16]byte; convert at the bind/scan
// boundary so model types stay on google/uuid.
func cqlUUID(id uuid.UUID) gocql.UUID {
	return gocql.UUID(id)
}

func (r *CassandraChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	userId := uuid.New()
	createdAt := Now()

	// Compare-and-set on the email partition; exactly one of any set of
	// concurrent registrants for the same email wins.
	applied, err := r.applyConditional("create account", statement{
		cql:  "INSERT INTO users_by_email (email, password_hash, user_id) VALUES (?, ?, ?) IF NOT EXISTS",
		args: []any{params.Email, params.PasswordHash, cqlUUID(userId)},
	})
	if err != nil {
		return User{}, err
	}
	if !applied {
		return User{}, ErrEmailTaken
	}

	// A crash between the claim above and this insert leaves an index row
	// with no canonical user. Accepted: a retried registration still
	// reports ErrEmailTaken, and login reports ErrNotFound after the
	// credential check. No automatic repair here.
	if err := r.session.Query(
		"INSERT INTO users (user_id, created_at, email, username) VALUES (?, ?, ?, ?)",
		cqlUUID(userId), createdAt, params.Email, params.Username,
	).Exec(); err != nil {
		return User{}, wrapStoreErr("create account", err)
	}

	return User{
		UserId:    userId,
		Email:     params.Email,
		Username:  params.Username,
		CreatedAt: createdAt,
	}, nil
}

func (r *CassandraChatRepository) GetAccountById(userId uuid.UUID) (User, error) {
	var (
		id    gocql.UUID
		user  User
		email string
	)
	if err := r.session.Query(
		"SELECT user_id, email, username, created_at FROM users WHERE user_id = ?",
		cqlUUID(userId),
	).Scan(&id, &email, &user.Username, &user.CreatedAt); err != nil {
		return User{}, wrapStoreErr("get account", err)
	}

	user.UserId = uuid.UUID(id)
	user.Email = email
	return user, nil
}

func (r *CassandraChatRepository) GetCredentialByEmail(email string) (Credential, error) {
	var (
		id   gocql.UUID
		hash string
	)
	if err := r.session.Query(
		"SELECT password_hash, user_id FROM users_by_email WHERE email = ?",
		email,
	).Scan(&hash, &id); err != nil {
		return Credential{}, wrapStoreErr("get credential", err)
	}

	return Credential{
		Email:        email,
		PasswordHash: hash,
		UserId:       uuid.UUID(id),
	}, nil
}
