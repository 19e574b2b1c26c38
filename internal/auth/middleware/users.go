package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/learning-site/internal/rbac"
)

var (
	ErrBadCredentials = errors.New("invalid credentials")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrUserNotFound   = errors.New("user not found")
	ErrLastAdmin      = errors.New("cannot demote the last admin")
)

// hashCost is lowered by tests.
var hashCost = bcrypt.DefaultCost

type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
}

type UserStore struct{ db *sql.DB }

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db} }

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), hashCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create registers a user with a fresh uuid.
func (s *UserStore) Create(ctx context.Context, username, email, password, role string) (User, error) {
	if !rbac.ValidRole(role) {
		return User{}, fmt.Errorf("unknown role %q", role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	u := User{ID: uuid.NewString(), Username: username, Email: email, Role: role, CreatedAt: time.Now().Unix()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (username) DO NOTHING`,
		u.ID, u.Username, u.Email, hash, u.Role, u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return User{}, err
	} else if n == 0 {
		return User{}, ErrUsernameTaken
	}
	return u, nil
}

func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, created_at FROM users WHERE username=$1`, username).
		Scan(&u.ID, &u.Username, &u.Email, &hash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

// SeedAdmin makes sure username exists as an admin with the given bcrypt
// hash. An existing user keeps its id and is promoted.
func (s *UserStore) SeedAdmin(ctx context.Context, username, passHash string) error {
	if username == "" || passHash == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(passHash)); err != nil {
		return fmt.Errorf("admin password hash: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (username) DO UPDATE SET password_hash=excluded.password_hash, role=excluded.role`,
		uuid.NewString(), username, passHash, rbac.RoleAdmin, time.Now().Unix())
	return err
}

// ChangePassword replaces the password of userID after checking the old one.
func (s *UserStore) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, userID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBadCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPassword)) != nil {
		return ErrBadCredentials
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, hash, userID)
	return err
}

// List returns users ordered by username, optionally filtered by role.
func (s *UserStore) List(ctx context.Context, role string) ([]User, error) {
	q := `SELECT id, username, email, role, created_at FROM users`
	args := []any{}
	if role != "" {
		q += ` WHERE role=$1`
		args = append(args, role)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY username`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetRole changes the role of the user named by id or username. The last
// admin cannot be demoted.
func (s *UserStore) SetRole(ctx context.Context, target, role string) (User, error) {
	if !rbac.ValidRole(role) {
		return User{}, fmt.Errorf("unknown role %q", role)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var u User
	err = tx.QueryRowContext(ctx,
		`SELECT id, username, email, role, created_at FROM users WHERE id=$1 OR username=$1`, target).
		Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	if u.Role == rbac.RoleAdmin && role != rbac.RoleAdmin {
		var admins int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role=$1`, rbac.RoleAdmin).Scan(&admins); err != nil {
			return User{}, err
		}
		if admins <= 1 {
			return User{}, ErrLastAdmin
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, u.ID); err != nil {
		return User{}, err
	}
	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	u.Role = role
	return u, nil
}

// ImportRow is one account in a bulk import. Password is required for new
// usernames and optional for existing ones.
type ImportRow struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

// Import upserts rows by username in one transaction.
func (s *UserStore) Import(ctx context.Context, rows []ImportRow) (inserted, updated int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	now := time.Now().Unix()
	for i, r := range rows {
		if r.Username == "" {
			return inserted, updated, fmt.Errorf("row %d: username required", i+1)
		}
		if r.Role == "" {
			r.Role = rbac.RoleStudent
		}
		if !rbac.ValidRole(r.Role) {
			return inserted, updated, fmt.Errorf("row %d: unknown role %q", i+1, r.Role)
		}
		var hash string
		if r.Password != "" {
			if hash, err = HashPassword(r.Password); err != nil {
				return inserted, updated, err
			}
		}

		var id string
		err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username=$1`, r.Username).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if hash == "" {
				return inserted, updated, fmt.Errorf("row %d: password required for new user %q", i+1, r.Username)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO users (id, username, email, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
				uuid.NewString(), r.Username, r.Email, hash, r.Role, now)
			if err != nil {
				return inserted, updated, err
			}
			inserted++
		case err != nil:
			return inserted, updated, err
		default:
			if hash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE users SET email=$1, role=$2, password_hash=$3 WHERE id=$4`,
					r.Email, r.Role, hash, id)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE users SET email=$1, role=$2 WHERE id=$3`, r.Email, r.Role, id)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		}
	}
	return inserted, updated, nil
}
