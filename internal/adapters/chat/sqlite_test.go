package chat

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

func newTestStore(t *testing.T) (*SQLiteStore, *time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := &now
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db"), WithClock(func() time.Time {
		*clock = clock.Add(time.Second)
		return *clock
	}))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestSQLiteStore_SaveAndLoadHistory(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	turns := []core.Message{
		{Role: "user", Content: "5-day trip to Lisbon"},
		{Role: "assistant", Content: "## Travel Plan"},
		{Role: "user", Content: "cheaper hotels please"},
	}
	for _, m := range turns {
		if err := store.SaveMessage(ctx, "alice", m.Role, m.Content, "conv_1"); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	got, err := store.LoadHistory(ctx, "alice", "conv_1")
	if err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("history = %d messages, want %d", len(got), len(turns))
	}
	for i := range turns {
		if got[i] != turns[i] {
			t.Errorf("message %d = %+v, want %+v", i, got[i], turns[i])
		}
	}

	// Other users see nothing.
	other, err := store.LoadHistory(ctx, "bob", "conv_1")
	if err != nil || len(other) != 0 {
		t.Errorf("LoadHistory(bob) = %v, %v", other, err)
	}
}

func TestSQLiteStore_ConversationSummary(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	long := strings.Repeat("Lisbon ", 40)

	if err := store.SaveMessage(ctx, "alice", "user", long, "conv_a"); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessage(ctx, "alice", "assistant", "answer", "conv_a"); err != nil {
		t.Fatal(err)
	}

	c, err := store.GetConversation(ctx, "alice", "conv_a")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if c.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", c.MessageCount)
	}
	if c.Title != long[:50]+"..." {
		t.Errorf("Title = %q", c.Title)
	}
	if len([]rune(c.FirstMessage)) != 200 {
		t.Errorf("FirstMessage length = %d, want 200", len([]rune(c.FirstMessage)))
	}
	if !c.UpdatedAt.After(c.CreatedAt) {
		t.Errorf("UpdatedAt %v should follow CreatedAt %v", c.UpdatedAt, c.CreatedAt)
	}
}

func TestSQLiteStore_TitleFromFirstUserMessage(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.SaveMessage(ctx, "alice", "assistant", "welcome", "conv_a"); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessage(ctx, "alice", "user", "Porto weekend", "conv_a"); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessage(ctx, "alice", "user", "second question", "conv_a"); err != nil {
		t.Fatal(err)
	}
	c, err := store.GetConversation(ctx, "alice", "conv_a")
	if err != nil {
		t.Fatal(err)
	}
	if c.Title != "Porto weekend" || c.FirstMessage != "Porto weekend" {
		t.Errorf("summary = %+v", c)
	}
}

func TestSQLiteStore_ListConversationsMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, id := range []string{"conv_old", "conv_new"} {
		if err := store.SaveMessage(ctx, "alice", "user", id, id); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.SaveMessage(ctx, "bob", "user", "hi", "conv_bob"); err != nil {
		t.Fatal(err)
	}

	list, err := store.ListConversations(ctx, "alice")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 2 || list[0].ID != "conv_new" || list[1].ID != "conv_old" {
		t.Fatalf("list = %+v", list)
	}

	// A new message moves the old conversation to the top.
	if err := store.SaveMessage(ctx, "alice", "user", "again", "conv_old"); err != nil {
		t.Fatal(err)
	}
	list, _ = store.ListConversations(ctx, "alice")
	if list[0].ID != "conv_old" {
		t.Errorf("first = %q, want conv_old", list[0].ID)
	}
}

func TestSQLiteStore_DeleteConversation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.SaveMessage(ctx, "alice", "user", "hi", "conv_a"); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteConversation(ctx, "bob", "conv_a"); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("delete by other user = %v, want not found", err)
	}
	if err := store.DeleteConversation(ctx, "alice", "conv_a"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	msgs, err := store.LoadHistory(ctx, "alice", "conv_a")
	if err != nil || len(msgs) != 0 {
		t.Errorf("messages after delete = %v, %v", msgs, err)
	}
	if _, err := store.GetConversation(ctx, "alice", "conv_a"); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("GetConversation after delete = %v", err)
	}
	if err := store.DeleteConversation(ctx, "alice", "conv_a"); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("second delete = %v, want not found", err)
	}
}

func TestSQLiteStore_RejectsForeignConversation(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.SaveMessage(ctx, "alice", "user", "hi", "conv_a"); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessage(ctx, "bob", "user", "hijack", "conv_a"); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("SaveMessage into another user's conversation = %v", err)
	}
}

func TestSQLiteStore_SaveValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	if err := store.SaveMessage(ctx, "alice", "user", "x", ""); !core.IsCategory(err, core.ErrCatValidation) {
		t.Errorf("empty conversation id = %v", err)
	}
	if err := store.SaveMessage(ctx, "alice", "", "x", "conv_a"); !core.IsCategory(err, core.ErrCatValidation) {
		t.Errorf("empty role = %v", err)
	}
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "chat.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveMessage(ctx, "alice", "user", "hi", "conv_a"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	msgs, err := store.LoadHistory(ctx, "alice", "conv_a")
	if err != nil || len(msgs) != 1 {
		t.Errorf("history after reopen = %v, %v", msgs, err)
	}
}

func TestNewStore_AppendsDBExtension(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "chat.sqlite"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	if !strings.HasSuffix(store.Path(), "chat.db") {
		t.Errorf("Path() = %q", store.Path())
	}
}

func TestNewConversationID(t *testing.T) {
	a, b := NewConversationID(), NewConversationID()
	if !strings.HasPrefix(a, "conv_") || a == b {
		t.Errorf("ids = %q, %q", a, b)
	}
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements("-- comment\nCREATE TABLE a (x INT);\n\n-- other\nCREATE INDEX i ON a(x);\n")
	if len(got) != 2 || !strings.HasPrefix(got[0], "CREATE TABLE") {
		t.Errorf("splitStatements = %q", got)
	}
}
