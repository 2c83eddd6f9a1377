// Package todo はログイン済みユーザーに紐付くto-doの作成と一覧を提供します。
package todo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/task-forge/internal/store"
)

var (
	// ErrPriorityNotFound は優先度名がマスタに存在しないことを表します。
	ErrPriorityNotFound = errors.New("priority not found")
	// ErrCategoryNotFound はカテゴリ名がマスタに存在しないことを表します。
	ErrCategoryNotFound = errors.New("category not found")
	// ErrInvalidDueDate は期日の形式不正を表します。
	ErrInvalidDueDate = errors.New("invalid due date")
)

// Store は todo サービスが必要とする永続化の操作です。
type Store interface {
	FindPriority(ctx context.Context, name string) (*store.Priority, error)
	FindCategory(ctx context.Context, name string) (*store.Category, error)
	CreateTodo(ctx context.Context, t store.NewTodo) (int64, error)
	ListTodos(ctx context.Context, userID int64) ([]store.Todo, error)
}

// Submission は作成フォームからの生の入力です。
type Submission struct {
	Title       string
	Description string
	DueDate     string
	Priority    string
	Category    string
}

// Service は所有者を確定したうえでto-doを永続化します。
// 未ログインのリクエストは RequireLogin ミドルウェアが事前に弾くため、
// ここに渡る userID は常にセッションへ紐付いたユーザーのものです。
type Service struct {
	store Store
}

// NewService は Service を作成します。
func NewService(s Store) *Service {
	return &Service{store: s}
}

// Submit は優先度・カテゴリ名を参照行へ解決し、本体と説明を保存します。
// 解決に失敗した場合は何も書き込まずに番兵エラーを返します。
func (s *Service) Submit(ctx context.Context, userID int64, sub Submission) (int64, error) {
	priority, err := s.store.FindPriority(ctx, sub.Priority)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrPriorityNotFound
		}
		return 0, fmt.Errorf("resolve priority: %w", err)
	}

	category, err := s.store.FindCategory(ctx, sub.Category)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, ErrCategoryNotFound
		}
		return 0, fmt.Errorf("resolve category: %w", err)
	}

	var dueDate *time.Time
	if sub.DueDate != "" {
		parsed, err := time.Parse("2006-01-02", sub.DueDate)
		if err != nil {
			return 0, ErrInvalidDueDate
		}
		dueDate = &parsed
	}

	return s.store.CreateTodo(ctx, store.NewTodo{
		UserID:      userID,
		Title:       sub.Title,
		DueDate:     dueDate,
		PriorityID:  priority.ID,
		CategoryID:  category.ID,
		Description: sub.Description,
	})
}

// List は指定ユーザーのto-do一覧を返します。
func (s *Service) List(ctx context.Context, userID int64) ([]store.Todo, error) {
	return s.store.ListTodos(ctx, userID)
}
