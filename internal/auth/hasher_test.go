package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("Abcdef1!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if hash == "" || hash == "Abcdef1!" {
		t.Fatalf("hash must be non-empty and not the plaintext: %q", hash)
	}

	ok, err := hasher.Verify("Abcdef1!", hash)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify must accept the original password")
	}
}

func TestVerifyRejectsOtherPassword(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("Abcdef1!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	ok, err := hasher.Verify("Wrongpw1!", hash)
	if err != nil {
		t.Fatalf("mismatch must not be an error, got: %v", err)
	}
	if ok {
		t.Fatal("Verify must reject a different password")
	}
}

func TestHashUniqueSaltPerCall(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	first, err := hasher.Hash("Abcdef1!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	second, err := hasher.Hash("Abcdef1!")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}
}

// バリデーション上限の128文字パスワードも登録・ログインできる
func TestHashAndVerifyMaxLengthPassword(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	long := strings.Repeat("Aa1!", 32) // 128 chars
	if errs := ValidateRegistration("Ann", "ann@x.com", long); len(errs) != 0 {
		t.Fatalf("128-char password must pass validation, got: %#v", errs)
	}

	hash, err := hasher.Hash(long)
	if err != nil {
		t.Fatalf("valid password must hash successfully, got: %v", err)
	}

	ok, err := hasher.Verify(long, hash)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify must accept the original long password")
	}

	ok, err = hasher.Verify(strings.Repeat("Bb2?", 32), hash)
	if err != nil {
		t.Fatalf("mismatch must not be an error, got: %v", err)
	}
	if ok {
		t.Fatal("Verify must reject a different long password")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := NewHasher(bcrypt.MinCost)

	ok, err := hasher.Verify("Abcdef1!", "not-a-bcrypt-hash")
	if ok {
		t.Fatal("malformed hash must not verify")
	}
	if !errors.Is(err, ErrHashing) {
		t.Fatalf("expected ErrHashing, got: %v", err)
	}
}
