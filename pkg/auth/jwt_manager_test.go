package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestJWTRoundTrip(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	token, err := manager.Generate("user-123")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("subject = %q, want %q", claims.Subject, "user-123")
	}

	expiry, err := manager.Expiry(token)
	if err != nil {
		t.Fatalf("Expiry: %v", err)
	}
	if remaining := time.Until(expiry); remaining < 55*time.Minute || remaining > time.Hour {
		t.Errorf("expiry in %v, want about an hour", remaining)
	}
}

func TestJWTVerifyRejects(t *testing.T) {
	manager := NewJWTManager("test-secret", time.Hour)

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour)
		token, err := other.Generate("user-123")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if _, err := manager.Verify(token); err == nil {
			t.Error("token signed with another secret must be rejected")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewJWTManager("test-secret", -time.Minute)
		token, err := expired.Generate("user-123")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if _, err := manager.Verify(token); err == nil {
			t.Error("expired token must be rejected")
		}
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Subject:   "user-123",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := manager.Verify(token); err == nil {
			t.Error("token with a foreign issuer must be rejected")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := manager.Verify("not.a.token"); err == nil {
			t.Error("garbage must be rejected")
		}
	})
}

func TestExtractTokenFromHeader(t *testing.T) {
	cases := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "bearer", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "missing header", header: "", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "no token", header: "Bearer", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/", nil)
			if err != nil {
				t.Fatalf("NewRequest: %v", err)
			}
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}

			got, err := ExtractTokenFromHeader(req)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ExtractTokenFromHeader(%q) = %q, want error", tc.header, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractTokenFromHeader: %v", err)
			}
			if got != tc.want {
				t.Errorf("token = %q, want %q", got, tc.want)
			}
		})
	}
}
