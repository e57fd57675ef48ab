package market

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

var testNow = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newStore(t *testing.T, backend kvstore.Backend, opts ...kvstore.Option) *kvstore.Store {
	t.Helper()
	s := kvstore.New(backend, append([]kvstore.Option{kvstore.WithLogger(quiet())}, opts...)...)
	t.Cleanup(func() { s.Close() })
	return s
}

func newMarketOn(store *kvstore.Store) *Marketplace {
	return New(store, Options{
		Logger:       quiet(),
		Now:          func() time.Time { return testNow },
		PasswordCost: bcrypt.MinCost,
	})
}

func newMarket(t *testing.T) *Marketplace {
	t.Helper()
	return newMarketOn(newStore(t, kvstore.NewMemory(0)))
}

func addBook(t *testing.T, m *Marketplace, owner string, deposit int) Book {
	t.Helper()
	b, err := m.Books.Add(context.Background(), BookDraft{
		Title:     "Book of " + owner,
		Author:    "Anon",
		Genre:     Genres{"Fiction"},
		Condition: ConditionGood,
		OwnerID:   owner,
		Deposit:   deposit,
		Location:  "Baner",
	})
	require.NoError(t, err)
	return b
}

func TestInitializeSeedsOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, kvstore.NewMemory(0))
	m := newMarketOn(store)
	fx, err := DefaultFixtures()
	require.NoError(t, err)

	seeded, err := m.Initialize(ctx, fx)
	require.NoError(t, err)
	require.True(t, seeded)

	books, err := m.Books.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, books, 3)

	// A later process sees the persisted flag.
	_, err = m.Books.Add(ctx, BookDraft{Title: "Extra", OwnerID: "u_alex"})
	require.NoError(t, err)
	seeded, err = newMarketOn(store).Initialize(ctx, fx)
	require.NoError(t, err)
	require.False(t, seeded)

	books, err = m.Books.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, books, 4)
}

func TestInitializeKeepsExistingCollections(t *testing.T) {
	ctx := context.Background()
	store := newStore(t, kvstore.NewMemory(0))
	require.NoError(t, store.Write(ctx, keyBooks, []Book{{ID: "mine", Title: "Mine", OwnerID: "u1"}}))

	m := newMarketOn(store)
	fx, err := DefaultFixtures()
	require.NoError(t, err)
	_, err = m.Initialize(ctx, fx)
	require.NoError(t, err)

	books, err := m.Books.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, books, 1)
	require.Equal(t, "mine", books[0].ID)

	users, err := m.Users.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, users)
}

func TestInitializeFixtureContents(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	fx, err := DefaultFixtures()
	require.NoError(t, err)
	_, err = m.Initialize(ctx, fx)
	require.NoError(t, err)

	friends, err := m.Social.ListFriends(ctx, GuestID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u_alex", "u_neha", "u_ron"}, friends)

	friends, err = m.Social.ListFriends(ctx, "u_neha")
	require.NoError(t, err)
	require.Equal(t, []string{GuestID}, friends)

	u, err := m.Users.Authenticate(ctx, "alex@mail.com", "123456", RoleReader)
	require.NoError(t, err)
	require.Equal(t, "u_alex", u.ID)
	require.Empty(t, u.PasswordHash)

	chats, err := m.Messages.ChatsFor(ctx, "firebase:someone")
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Equal(t, testNow.Add(-24*time.Hour), chats[0].Messages[0].At)

	events, err := m.Events.List(ctx, CategoryAll)
	require.NoError(t, err)
	require.Len(t, events, 8)

	fairs, err := m.Events.List(ctx, "fair")
	require.NoError(t, err)
	require.Len(t, fairs, 2)
}

func TestNormalize(t *testing.T) {
	id := DefaultIdentity()
	cases := map[string]string{
		"":             GuestID,
		"undefined":    GuestID,
		"firebase:abc": GuestID,
		"u_alex":       "u_alex",
		" u_ron ":      "u_ron",
	}
	for in, want := range cases {
		if got := id.Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}

	custom := Identity{GuestID: "guest", ForeignPrefixes: []string{"google:"}}
	if got := custom.Normalize("google:1"); got != "guest" {
		t.Errorf("custom Normalize = %q, want guest", got)
	}
	if got := custom.Normalize("firebase:1"); got != "firebase:1" {
		t.Errorf("custom Normalize kept foreign id = %q", got)
	}
}

func TestCapacityFailureKeepsSessionState(t *testing.T) {
	ctx := context.Background()
	var warnings []kvstore.Warning
	store := newStore(t, kvstore.NewMemory(256), kvstore.WithWarningHandler(func(w kvstore.Warning) {
		warnings = append(warnings, w)
	}))
	m := newMarketOn(store)

	big := make([]byte, 1024)
	for i := range big {
		big[i] = 'x'
	}
	b, err := m.Books.Add(ctx, BookDraft{Title: "Huge", OwnerID: "u1", Description: string(big)})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Equal(t, keyBooks, warnings[0].Key)

	got, err := m.Books.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, "Huge", got.Title)
}
