// Package store はPostgreSQLを使った永続化レイヤーを提供します。
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound は対象レコードが存在しないことを表します。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail はメールアドレスの一意制約違反を表します。
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrDescriptionInsert は説明レコードの挿入失敗を表します。
	// todo 本体と区別して呼び出し側へ報告するための番兵エラーです。
	ErrDescriptionInsert = errors.New("description insert failed")
)

// querier は *pgxpool.Pool のうちストアが必要とする操作だけを切り出した
// インターフェースです。テストでは pgxmock がこれを満たします。
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store は users / todos 関連テーブルへのアクセスをまとめた構造体です。
type Store struct {
	db   querier
	pool *pgxpool.Pool
}

// Open は接続プールを作成し、疎通確認のうえ Store を返します。
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// NewWithQuerier はテスト用に任意の querier を差し込んで Store を作成します。
func NewWithQuerier(db querier) *Store {
	return &Store{db: db}
}

// Close は接続プールを解放します。
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
