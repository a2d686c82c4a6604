package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	hash, err := Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=1,p=4$") {
		t.Errorf("unexpected hash format %q", hash)
	}
	ok, err := Verify("s3cret", hash)
	if err != nil || !ok {
		t.Errorf("Verify(correct) = %v, %v", ok, err)
	}
	ok, err = Verify("wrong", hash)
	if err != nil || ok {
		t.Errorf("Verify(wrong) = %v, %v", ok, err)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	a, _ := Hash("same")
	b, _ := Hash("same")
	if a == b {
		t.Error("two hashes of the same token should differ")
	}
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, h := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=18$m=65536,t=1,p=4$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=65536,t=1,p=4$!!$a2V5",
	} {
		if _, err := Verify("x", h); !errors.Is(err, ErrInvalidHash) {
			t.Errorf("Verify(%q) err = %v, want ErrInvalidHash", h, err)
		}
	}
}

func TestChecker(t *testing.T) {
	hash, err := Hash("abc")
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name      string
		mode      Mode
		token     string
		hash      string
		presented string
		want      bool
	}{
		{"disabled accepts anything", ModeDisabled, "", "", "", true},
		{"token match", ModeToken, "abc", "", "abc", true},
		{"token mismatch", ModeToken, "abc", "", "abd", false},
		{"token empty", ModeToken, "abc", "", "", false},
		{"hash match", ModeHash, "", hash, "abc", true},
		{"hash mismatch", ModeHash, "", hash, "nope", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ch, err := NewChecker(c.mode, c.token, c.hash)
			if err != nil {
				t.Fatalf("NewChecker: %v", err)
			}
			if got := ch.Check(c.presented); got != c.want {
				t.Errorf("Check(%q) = %v, want %v", c.presented, got, c.want)
			}
		})
	}
}

func TestNewCheckerErrors(t *testing.T) {
	if _, err := NewChecker(ModeToken, "", ""); err == nil {
		t.Error("token mode without token should fail")
	}
	if _, err := NewChecker(ModeHash, "", "not-a-hash"); err == nil {
		t.Error("hash mode with bad hash should fail")
	}
	if _, err := NewChecker("oauth", "", ""); err == nil {
		t.Error("unknown mode should fail")
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}
	for in, want := range cases {
		if got := BearerToken(in); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}
