package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Accounts guard the HTTP API with basic auth; there are no sessions.
var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrNoUsers        = errors.New("no users exist; set auth_user/auth_pass in config to bootstrap an account")
	ErrWeakPassword   = errors.New("password must be at least 8 characters")
)

const minPasswordLen = 8

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	LastLogin    time.Time // zero until the first successful request
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLen {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (db *DB) HasUsers() (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM users LIMIT 1`).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (db *DB) CreateUser(username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, errors.New("username required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := db.Exec(`INSERT INTO users(username, password_hash, created_at, updated_at) VALUES(?,?,?,?)`,
		username, hash, now, now)
	if err != nil {
		return 0, fmt.Errorf("create user %q: %w", username, err)
	}
	return res.LastInsertId()
}

func (db *DB) GetUserByUsername(username string) (*User, error) {
	var (
		u    User
		last sql.NullString
	)
	err := db.QueryRow(`SELECT id, username, password_hash, last_login_at FROM users WHERE username=?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &last)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		u.LastLogin, _ = time.Parse(timeLayout, last.String)
	}
	return &u, nil
}

func (db *DB) UpdatePassword(userID int64, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	_, err = db.Exec(`UPDATE users SET password_hash=?, updated_at=? WHERE id=?`,
		hash, time.Now().UTC().Format(timeLayout), userID)
	return err
}

// UpdateLastLogin is best effort; a failed write never rejects a request.
func (db *DB) UpdateLastLogin(userID int64) {
	_, _ = db.Exec(`UPDATE users SET last_login_at=? WHERE id=?`, time.Now().UTC().Format(timeLayout), userID)
}

// Authenticate checks a username and password against the stored hash.
// Unknown users and wrong passwords both yield ErrBadCredentials.
func (db *DB) Authenticate(username, password string) (*User, error) {
	u, err := db.GetUserByUsername(strings.TrimSpace(username))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrBadCredentials
	case err != nil:
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// EnsureInitialUser creates the configured account when the users table is
// empty. It returns ErrNoUsers when there is nothing to bootstrap from.
func (db *DB) EnsureInitialUser(username, password string) error {
	if ok, err := db.HasUsers(); err != nil || ok {
		return err
	}
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return ErrNoUsers
	}
	_, err := db.CreateUser(username, strings.TrimSpace(password))
	return err
}
