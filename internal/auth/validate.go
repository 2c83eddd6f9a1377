package auth

import (
	"regexp"
	"strings"
)

// FieldError は入力フィールド単位のバリデーション失敗です。
type FieldError struct {
	Field   string
	Message string
}

var (
	emailPattern   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	digitPattern   = regexp.MustCompile(`[0-9]`)
	specialPattern = regexp.MustCompile(`[@$!%*?&]`)
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// ValidateRegistration は登録フォームの入力を検証します。
// 問題をまとめて表示できるよう、最初の失敗で打ち切らず
// 該当する失敗をすべて順番どおりに返します。副作用はありません。
func ValidateRegistration(name, email, password string) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "Name is required"})
	}

	if !emailPattern.MatchString(email) {
		errs = append(errs, FieldError{Field: "username", Message: "Please enter a valid email"})
	}

	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		errs = append(errs, FieldError{
			Field:   "password",
			Message: "Password must be between 8 and 128 characters long",
		})
	}
	if !lowerPattern.MatchString(password) ||
		!upperPattern.MatchString(password) ||
		!digitPattern.MatchString(password) ||
		!specialPattern.MatchString(password) {
		errs = append(errs, FieldError{
			Field:   "password",
			Message: "Password must include at least one uppercase letter, one lowercase letter, one number, and one special character (@$!%*?&)",
		})
	}

	return errs
}
