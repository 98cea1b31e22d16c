package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cg-assist/backend/internal/catalog"
)

func failureKind(t *testing.T, err error) FailureKind {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("error %v is not a *Failure", err)
	}
	return f.Kind
}

func TestRegistryInvoke(t *testing.T) {
	executed := false
	reg := NewRegistry(
		&Tool{
			Name:        "echo",
			Description: "test tool",
			Validate: func(args Args) error {
				if _, ok := args["required"]; !ok {
					return fmt.Errorf("required is missing")
				}
				return nil
			},
			Run: func(context.Context, Args) (Payload, error) {
				executed = true
				return Payload{Results: []catalog.SearchResult{{FileID: 1}}}, nil
			},
		},
		&Tool{
			Name:        "broken",
			Description: "always fails",
			Run: func(context.Context, Args) (Payload, error) {
				return Payload{}, fmt.Errorf("backend down")
			},
		},
	)

	t.Run("unknown tool", func(t *testing.T) {
		_, err := reg.Invoke(context.Background(), "nope", Args{})
		if kind := failureKind(t, err); kind != FailureNotFound {
			t.Errorf("Invoke() failure kind = %s, want %s", kind, FailureNotFound)
		}
	})

	t.Run("invalid args skip execution", func(t *testing.T) {
		executed = false
		_, err := reg.Invoke(context.Background(), "echo", Args{})
		if kind := failureKind(t, err); kind != FailureInvalidArgs {
			t.Errorf("Invoke() failure kind = %s, want %s", kind, FailureInvalidArgs)
		}
		if executed {
			t.Error("Invoke() executed the tool despite invalid args")
		}
	})

	t.Run("valid args execute", func(t *testing.T) {
		executed = false
		payload, err := reg.Invoke(context.Background(), "echo", Args{"required": true})
		if err != nil {
			t.Fatalf("Invoke() unexpected error: %v", err)
		}
		if !executed {
			t.Error("Invoke() did not execute the tool")
		}
		if payload.Count() != 1 {
			t.Errorf("Payload.Count() = %d, want 1", payload.Count())
		}
	})

	t.Run("execution error", func(t *testing.T) {
		_, err := reg.Invoke(context.Background(), "broken", Args{})
		if kind := failureKind(t, err); kind != FailureExecution {
			t.Errorf("Invoke() failure kind = %s, want %s", kind, FailureExecution)
		}
	})

	t.Run("descriptions preserve registration order", func(t *testing.T) {
		descs := reg.Descriptions()
		if len(descs) != 2 {
			t.Fatalf("Descriptions() returned %d entries, want 2", len(descs))
		}
		if descs[0] != "echo: test tool" {
			t.Errorf("Descriptions()[0] = %q", descs[0])
		}
	})
}

func TestArgHelpers(t *testing.T) {
	t.Run("intArg accepts json numbers", func(t *testing.T) {
		n, err := intArg(Args{"limit": float64(7)}, "limit", true)
		if err != nil || n != 7 {
			t.Errorf("intArg() = %d, %v; want 7, nil", n, err)
		}
	})

	t.Run("intArg rejects strings", func(t *testing.T) {
		if _, err := intArg(Args{"limit": "7"}, "limit", true); err == nil {
			t.Error("intArg() accepted a string")
		}
	})

	t.Run("missing required arg", func(t *testing.T) {
		_, err := stringArg(Args{}, "query", true)
		if !errors.Is(err, errMissingArg) {
			t.Errorf("stringArg() error = %v, want errMissingArg", err)
		}
	})

	t.Run("limit above maximum", func(t *testing.T) {
		if _, err := limitArg(Args{"limit": float64(maxLimit + 1)}); err == nil {
			t.Error("limitArg() accepted a limit above the maximum")
		}
	})

	t.Run("negative limit", func(t *testing.T) {
		if _, err := limitArg(Args{"limit": float64(-1)}); err == nil {
			t.Error("limitArg() accepted a negative limit")
		}
	})
}
