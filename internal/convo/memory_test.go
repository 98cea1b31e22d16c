package convo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

func TestMemoryStoreAppendAndGet(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	ctx := context.Background()

	err := store.AppendTurn(ctx, id, "u1", Turn{Role: RoleUser, Content: "find me dragon renders"})
	if err != nil {
		t.Fatalf("AppendTurn() unexpected error: %v", err)
	}
	err = store.AppendTurn(ctx, id, "u1", Turn{Role: RoleAssistant, Content: "found 3"})
	if err != nil {
		t.Fatalf("AppendTurn() unexpected error: %v", err)
	}

	conv, err := store.Get(ctx, id, "u1")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if len(conv.Turns) != 2 {
		t.Errorf("turns = %d, want 2", len(conv.Turns))
	}
	if conv.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", conv.MessageCount)
	}
	if conv.Title != "Me dragon renders" {
		t.Errorf("Title = %q", conv.Title)
	}
}

func TestMemoryStoreOwnership(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	ctx := context.Background()

	if err := store.AppendTurn(ctx, id, "owner", Turn{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("AppendTurn() unexpected error: %v", err)
	}

	if _, err := store.Get(ctx, id, "intruder"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() by other user = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, id, "intruder"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() by other user = %v, want ErrNotFound", err)
	}
	if err := store.AppendTurn(ctx, id, "intruder", Turn{Role: RoleUser, Content: "mine now"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendTurn() by other user = %v, want ErrNotFound", err)
	}

	// The owner still sees the untouched conversation.
	conv, err := store.Get(ctx, id, "owner")
	if err != nil {
		t.Fatalf("Get() unexpected error: %v", err)
	}
	if len(conv.Turns) != 1 {
		t.Errorf("turns = %d, want 1", len(conv.Turns))
	}
}

func TestMemoryStoreListOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	if err := store.AppendTurn(ctx, first, "u1", Turn{Role: RoleUser, Content: "one"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if err := store.AppendTurn(ctx, second, "u1", Turn{Role: RoleUser, Content: "two"}); err != nil {
		t.Fatal(err)
	}
	if err := store.AppendTurn(ctx, uuid.New(), "someone-else", Turn{Role: RoleUser, Content: "three"}); err != nil {
		t.Fatal(err)
	}

	summaries, err := store.List(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("List() returned %d conversations, want 2", len(summaries))
	}
	if summaries[0].ID != second || summaries[1].ID != first {
		t.Error("List() not ordered by most recent update")
	}

	limited, err := store.List(ctx, "u1", 1)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("List() with limit returned %d, want 1", len(limited))
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	id := uuid.New()
	ctx := context.Background()

	if err := store.AppendTurn(ctx, id, "u1", Turn{Role: RoleUser, Content: "hi"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, id, "u1"); err != nil {
		t.Fatalf("Delete() unexpected error: %v", err)
	}
	if _, err := store.Get(ctx, id, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, id, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestDeriveTitle(t *testing.T) {
	cases := []struct {
		query string
		want  string
	}{
		{"show me all dragon renders", "All dragon renders"},
		{"find 4K images from showA", "4k images from showa"},
		{"what happened to the old castle scene", "Happened to the old castle scene"},
		{"", "New Conversation"},
		{"find", "New Conversation"},
	}
	for _, tc := range cases {
		if got := deriveTitle(tc.query); got != tc.want {
			t.Errorf("deriveTitle(%q) = %q, want %q", tc.query, got, tc.want)
		}
	}
}

func TestDeriveTitleTruncates(t *testing.T) {
	long := "a"
	for len(long) <= maxTitleLength {
		long += " very long query about production assets"
	}
	got := deriveTitle(long)
	if len(got) != maxTitleLength {
		t.Errorf("deriveTitle() length = %d, want %d", len(got), maxTitleLength)
	}
}

func TestDeriveTitleMultibyte(t *testing.T) {
	if got := deriveTitle("über alles"); got != "Über alles" {
		t.Errorf("deriveTitle() = %q, want %q", got, "Über alles")
	}

	long := strings.Repeat("日本語のアセット", 10)
	got := deriveTitle(long)
	if !utf8.ValidString(got) {
		t.Fatalf("deriveTitle() produced invalid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != maxTitleLength {
		t.Errorf("deriveTitle() rune count = %d, want %d", n, maxTitleLength)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("deriveTitle() = %q, want trailing ellipsis", got)
	}
}
