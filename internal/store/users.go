package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// User は登録済みユーザーのレコードです。
// PasswordHash には bcrypt ハッシュのみを保存し、平文は一切保持しません。
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
}

// FindByEmail はメールアドレス完全一致でユーザーを検索します。
// 見つからない場合は ErrNotFound を返します。
func (s *Store) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, password_hash
		FROM users
		WHERE email = $1
	`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return user, nil
}

// FindByID はIDでユーザーを検索します。セッション解決で毎リクエスト呼ばれます。
func (s *Store) FindByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, name, email, password_hash
		FROM users
		WHERE id = $1
	`, id)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return user, nil
}

// CreateUser は新規ユーザーを挿入し、採番されたIDを含むレコードを返します。
// 一意性は users.email の UNIQUE 制約が最終的に保証します。事前チェックと
// 挿入の間に同じメールで並行登録されても、ここで ErrDuplicateEmail になります。
func (s *Store) CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error) {
	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id
	`, name, email, passwordHash).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return &User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	}, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash); err != nil {
		return nil, err
	}
	return &u, nil
}
