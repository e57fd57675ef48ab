package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// env is what every service shares.
type env struct {
	store        *kvstore.Store
	ident        Identity
	now          func() time.Time
	log          *slog.Logger
	passwordCost int
}

func (e *env) newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func (e *env) timestamp() time.Time {
	return e.now().UTC()
}

// Options configures a Marketplace. Zero values pick defaults.
type Options struct {
	Identity Identity
	Logger   *slog.Logger
	Now      func() time.Time
	// PasswordCost is the bcrypt cost; tests lower it.
	PasswordCost int
}

// Marketplace bundles the services over one store. It is the only data
// access path for the CLI and the HTTP API.
type Marketplace struct {
	Users         *Users
	Books         *Catalog
	Social        *Social
	Messages      *Messaging
	Wishlists     *Wishlists
	Likes         *Likes
	Reviews       *Reviews
	Notifications *Notifications
	Requests      *Requests
	Events        *Events

	env *env
}

// New wires every service to store.
func New(store *kvstore.Store, opts Options) *Marketplace {
	e := &env{
		store:        store,
		ident:        opts.Identity,
		now:          opts.Now,
		log:          opts.Logger,
		passwordCost: opts.PasswordCost,
	}
	if e.ident.GuestID == "" && len(e.ident.ForeignPrefixes) == 0 {
		e.ident = DefaultIdentity()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.passwordCost == 0 {
		e.passwordCost = bcrypt.DefaultCost
	}

	m := &Marketplace{env: e}
	m.Users = &Users{env: e}
	m.Notifications = &Notifications{env: e}
	m.Social = &Social{env: e}
	m.Books = &Catalog{env: e}
	m.Messages = &Messaging{env: e, social: m.Social}
	m.Wishlists = &Wishlists{env: e}
	m.Likes = &Likes{env: e}
	m.Reviews = &Reviews{env: e, users: m.Users, books: m.Books, notes: m.Notifications}
	m.Requests = &Requests{env: e, books: m.Books, social: m.Social, notes: m.Notifications}
	m.Events = &Events{env: e, users: m.Users}
	return m
}

// Normalize exposes the identity rules to callers that key their own state
// by user id.
func (m *Marketplace) Normalize(id string) string { return m.env.ident.Normalize(id) }

// Initialize seeds every absent collection from fx exactly once. The seeded
// flag is persisted, so later calls (and later processes) are no-ops. It
// reports whether seeding ran.
func (m *Marketplace) Initialize(ctx context.Context, fx *Fixtures) (bool, error) {
	e := m.env
	var state meta
	if _, err := e.store.Read(ctx, keyMeta, &state); err != nil {
		return false, err
	}
	if state.Seeded {
		return false, nil
	}
	if fx == nil {
		fx = &Fixtures{}
	}

	seeds := []struct {
		key   string
		value func() (any, error)
	}{
		{keyUsers, func() (any, error) { return fx.users(e) }},
		{keyBooks, func() (any, error) { return fx.books(e), nil }},
		{keyChats, func() (any, error) { return fx.chats(e), nil }},
		{keyEvents, func() (any, error) { return fx.events(e), nil }},
		{keyFriends, func() (any, error) { return fx.friends(e), nil }},
		{keyRequests, func() (any, error) { return []Request{}, nil }},
		{keyWishlists, func() (any, error) { return map[string][]string{}, nil }},
		{keyLikes, func() (any, error) { return map[string][]string{}, nil }},
		{keyReviews, func() (any, error) { return []Review{}, nil }},
		{keyNotifications, func() (any, error) { return []Notification{}, nil }},
	}

	for _, s := range seeds {
		exists, err := e.store.Exists(ctx, s.key)
		if err != nil {
			return false, err
		}
		if exists {
			continue
		}
		v, err := s.value()
		if err != nil {
			return false, fmt.Errorf("seed %s: %w", s.key, err)
		}
		if err := e.store.Write(ctx, s.key, v); err != nil {
			return false, fmt.Errorf("seed %s: %w", s.key, err)
		}
	}

	if err := m.Social.Rebuild(ctx); err != nil {
		return false, fmt.Errorf("rebuild friends: %w", err)
	}

	state = meta{SchemaVersion: SchemaVersion, Seeded: true, SeededAt: e.timestamp()}
	if err := e.store.Write(ctx, keyMeta, state); err != nil {
		return false, err
	}
	e.log.Info("store initialized", "schema_version", SchemaVersion)
	return true, nil
}
