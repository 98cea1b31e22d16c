package auth

import (
	"context"
	"errors"
	"testing"
)

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier(map[string]string{"tok-abc": "alice"}, false)
	ctx := context.Background()

	t.Run("known token", func(t *testing.T) {
		user, err := v.Verify(ctx, "tok-abc")
		if err != nil {
			t.Fatalf("Verify() unexpected error: %v", err)
		}
		if user != "alice" {
			t.Errorf("Verify() = %q, want alice", user)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if _, err := v.Verify(ctx, "tok-bogus"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("missing token rejected", func(t *testing.T) {
		if _, err := v.Verify(ctx, ""); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("anonymous allowed", func(t *testing.T) {
		anon := NewStaticVerifier(nil, true)
		user, err := anon.Verify(ctx, "")
		if err != nil {
			t.Fatalf("Verify() unexpected error: %v", err)
		}
		if user != AnonymousUser {
			t.Errorf("Verify() = %q, want %q", user, AnonymousUser)
		}
	})
}
