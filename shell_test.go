package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
	"github.com/Sakshi-Saware/BookSwap/market"
)

func newShellMarket(t *testing.T) *market.Marketplace {
	t.Helper()
	color.NoColor = true
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := kvstore.New(kvstore.NewMemory(0), kvstore.WithLogger(log))
	t.Cleanup(func() { store.Close() })

	m := market.New(store, market.Options{Logger: log, PasswordCost: bcrypt.MinCost})
	fx, err := market.DefaultFixtures()
	require.NoError(t, err)
	_, err = m.Initialize(context.Background(), fx)
	require.NoError(t, err)
	return m
}

func script(lines ...string) io.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

func TestShellAddBookAfterLogin(t *testing.T) {
	m := newShellMarket(t)
	ctx := context.Background()

	err := runShell(ctx, m, script(
		"login", "alex@mail.com", "123456",
		"add book", "Sapiens", "Yuval Noah Harari", "History, Science", "New", "120", "Pune",
		"exit",
	))
	require.NoError(t, err)

	books, err := m.Books.ByOwner(ctx, "u_alex")
	require.NoError(t, err)
	require.NotEmpty(t, books)
	assert.Equal(t, "Sapiens", books[0].Title)
	assert.Equal(t, []string{"History", "Science"}, books[0].Genre)
	assert.Equal(t, 120, books[0].Deposit)
}

func TestShellRequestAndMessage(t *testing.T) {
	m := newShellMarket(t)
	ctx := context.Background()

	err := runShell(ctx, m, script(
		"login", "neha@mail.com", "123456",
		"request book", "book_alchemist", "Borrow", "2 weeks", "Can I borrow this?", "meet at the cafe",
		"send message", "u_ron", "hello ron",
		"exit",
	))
	require.NoError(t, err)

	out, err := m.Requests.Outgoing(ctx, "u_neha")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, market.StatusPending, out[0].Status)
	assert.Equal(t, "u_alex", out[0].ToUID)
	require.NotNil(t, out[0].DueDate)

	friends, err := m.Social.ListFriends(ctx, "u_neha")
	require.NoError(t, err)
	assert.Contains(t, friends, "u_alex")
	assert.Contains(t, friends, "u_ron")
}

func TestShellGuestAndOwnership(t *testing.T) {
	m := newShellMarket(t)
	ctx := context.Background()

	// The guest cannot delete someone else's listing.
	err := runShell(ctx, m, script(
		"delete book", "book_clean_code",
		"wishlist add", "book_clean_code",
		"not a command",
	))
	require.NoError(t, err, "EOF ends the shell cleanly")

	_, err = m.Books.Get(ctx, "book_clean_code")
	assert.NoError(t, err)

	ids, err := m.Wishlists.Get(ctx, market.GuestID)
	require.NoError(t, err)
	assert.Equal(t, []string{"book_clean_code"}, ids)
}
