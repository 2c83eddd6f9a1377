package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Priority は固定の優先度マスタの1行です。
type Priority struct {
	ID   int32
	Name string
}

// Category は固定のカテゴリマスタの1行です。
type Category struct {
	ID   int32
	Name string
}

// Todo は一覧表示用に関連テーブルを結合したto-doレコードです。
type Todo struct {
	ID          int64
	UserID      int64
	Title       string
	DueDate     *time.Time
	Priority    string
	Category    string
	Description string
}

// NewTodo は作成時の入力です。PriorityID / CategoryID は解決済みの参照です。
type NewTodo struct {
	UserID      int64
	Title       string
	DueDate     *time.Time
	PriorityID  int32
	CategoryID  int32
	Description string
}

// FindPriority は優先度を名前で検索します。大文字小文字は区別しません。
func (s *Store) FindPriority(ctx context.Context, name string) (*Priority, error) {
	row := s.db.QueryRow(ctx, `
		SELECT priority_id, name
		FROM priorities
		WHERE LOWER(name) = LOWER($1)
	`, name)

	var p Priority
	if err := row.Scan(&p.ID, &p.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find priority: %w", err)
	}
	return &p, nil
}

// FindCategory はカテゴリを名前で検索します。大文字小文字は区別しません。
func (s *Store) FindCategory(ctx context.Context, name string) (*Category, error) {
	row := s.db.QueryRow(ctx, `
		SELECT category_id, name
		FROM categories
		WHERE LOWER(name) = LOWER($1)
	`, name)

	var c Category
	if err := row.Scan(&c.ID, &c.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &c, nil
}

// CreateTodo は todo 本体と説明レコードを1トランザクションで挿入します。
// 説明の挿入に失敗した場合は本体ごとロールバックし、ErrDescriptionInsert を
// ラップして返します。
func (s *Store) CreateTodo(ctx context.Context, t NewTodo) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var todoID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO todos (user_id, title, due_date, priority_id, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING todo_id
	`, t.UserID, t.Title, t.DueDate, t.PriorityID, t.CategoryID).Scan(&todoID)
	if err != nil {
		return 0, fmt.Errorf("insert todo: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO todo_descriptions (todo_id, description)
		VALUES ($1, $2)
	`, todoID, t.Description)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDescriptionInsert, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return todoID, nil
}

// ListTodos は指定ユーザーのto-doを作成順で返します。
func (s *Store) ListTodos(ctx context.Context, userID int64) ([]Todo, error) {
	rows, err := s.db.Query(ctx, `
		SELECT t.todo_id, t.user_id, t.title, t.due_date, p.name, c.name, d.description
		FROM todos t
		JOIN priorities p ON p.priority_id = t.priority_id
		JOIN categories c ON c.category_id = t.category_id
		JOIN todo_descriptions d ON d.todo_id = t.todo_id
		WHERE t.user_id = $1
		ORDER BY t.todo_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.DueDate, &t.Priority, &t.Category, &t.Description); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate todos: %w", err)
	}
	return todos, nil
}
