package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Christian-Regnante/SmartQ/internal/models"
	"github.com/Christian-Regnante/SmartQ/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	var hash string
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT user_id, username, password_hash, role, full_name, phone, organization_id, service_id, active, created_at, last_login
			FROM users
			WHERE username = $1
		`, username)
		var fullName, phone, orgID, serviceID sql.NullString
		var lastLogin sql.NullTime
		if err := row.Scan(&user.UserID, &user.Username, &hash, &user.Role, &fullName, &phone, &orgID, &serviceID, &user.Active, &user.CreatedAt, &lastLogin); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrInvalidCredentials
			}
			return err
		}
		user.FullName = fullName.String
		user.Phone = phone.String
		user.OrganizationID = orgID.String
		user.ServiceID = serviceID.String
		user.LastLogin = nullTimePtr(lastLogin)
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	if !user.Active {
		return models.User{}, store.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return models.User{}, store.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	err = retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE user_id = $1`, user.UserID, now)
		return err
	})
	if err != nil {
		return models.User{}, err
	}
	user.LastLogin = &now
	return user, nil
}

func (s *Store) CreateSession(ctx context.Context, userID string, ttl time.Duration) (store.Session, error) {
	session := store.Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	err := retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `
			INSERT INTO sessions (session_id, user_id, expires_at)
			VALUES ($1, $2, $3)
		`, session.SessionID, session.UserID, session.ExpiresAt)
		return err
	})
	if err != nil {
		return store.Session{}, err
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	err := retry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx, `
			SELECT s.session_id, s.user_id, s.expires_at,
				u.user_id, u.username, u.role, u.full_name, u.phone, u.organization_id, u.service_id, u.active, u.created_at, u.last_login
			FROM sessions s
			JOIN users u ON u.user_id = s.user_id
			WHERE s.session_id = $1
		`, sessionID)
		var user models.User
		var fullName, phone, orgID, serviceID sql.NullString
		var lastLogin sql.NullTime
		if err := row.Scan(
			&session.SessionID, &session.UserID, &session.ExpiresAt,
			&user.UserID, &user.Username, &user.Role, &fullName, &phone, &orgID, &serviceID, &user.Active, &user.CreatedAt, &lastLogin,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.ErrSessionNotFound
			}
			return err
		}
		user.FullName = fullName.String
		user.Phone = phone.String
		user.OrganizationID = orgID.String
		user.ServiceID = serviceID.String
		user.LastLogin = nullTimePtr(lastLogin)
		session.User = user
		return nil
	})
	if err != nil {
		return store.Session{}, err
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.DeleteSession(ctx, sessionID)
		return store.Session{}, store.ErrSessionNotFound
	}
	if !session.User.Active {
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return retry(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID)
		return err
	})
}
