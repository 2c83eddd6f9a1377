package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourusername/task-forge/internal/store"
)

// InvalidCredentialsMessage はログイン失敗時にクライアントへ返す唯一の文言です。
// メール未登録とパスワード不一致で同じ文言を使い、登録済みメールの
// 推測に利用されないようにします。
const InvalidCredentialsMessage = "Invalid email or password"

// UserStore は認証が必要とするユーザー永続化の操作です。
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*store.User, error)
	FindByID(ctx context.Context, id int64) (*store.User, error)
	CreateUser(ctx context.Context, name, email, passwordHash string) (*store.User, error)
}

// Authenticator はメールアドレスと平文パスワードから本人確認を行います。
type Authenticator struct {
	store  UserStore
	hasher *Hasher
	logger *slog.Logger
}

// NewAuthenticator は Authenticator を作成します。
func NewAuthenticator(userStore UserStore, hasher *Hasher, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		store:  userStore,
		hasher: hasher,
		logger: logger,
	}
}

// Authenticate はメールでユーザーを検索し、ハッシュと照合します。
// 戻り値は (認証されたユーザー, 認証成否, インフラ障害) の3つで、
// ユーザー不在とパスワード不一致はどちらも ok=false 。
// 両者の区別はサーバーログにだけ残します。
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*store.User, bool, error) {
	user, err := a.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			a.logger.Debug("login failed: user not found", slog.String("email", email))
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	// bcrypt の照合は途中でキャンセルできないため、開始前に期限切れを確認する
	if err := ctx.Err(); err != nil {
		return nil, false, fmt.Errorf("verify password: %w", err)
	}

	ok, err := a.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, false, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		a.logger.Debug("login failed: wrong password", slog.Int64("user_id", user.ID))
		return nil, false, nil
	}

	return user, true, nil
}
