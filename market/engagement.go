package market

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// ------------------ Wishlists ------------------

// Wishlists maps a user to the ids of books they want, in insertion order.
type Wishlists struct {
	*env
}

// Add is idempotent.
func (w *Wishlists) Add(ctx context.Context, uid, bookID string) error {
	uid = w.ident.Normalize(uid)
	return kvstore.Update(ctx, w.store, keyWishlists, func(all *map[string][]string) error {
		if *all == nil {
			*all = map[string][]string{}
		}
		if !slices.Contains((*all)[uid], bookID) {
			(*all)[uid] = append((*all)[uid], bookID)
		}
		return nil
	})
}

// Remove is a no-op when bookID is not listed.
func (w *Wishlists) Remove(ctx context.Context, uid, bookID string) error {
	uid = w.ident.Normalize(uid)
	return kvstore.Update(ctx, w.store, keyWishlists, func(all *map[string][]string) error {
		if *all == nil {
			return nil
		}
		(*all)[uid] = slices.DeleteFunc((*all)[uid], func(id string) bool { return id == bookID })
		return nil
	})
}

func (w *Wishlists) Get(ctx context.Context, uid string) ([]string, error) {
	uid = w.ident.Normalize(uid)
	all, err := kvstore.Load[map[string][]string](ctx, w.store, keyWishlists)
	if err != nil {
		return nil, err
	}
	if all[uid] == nil {
		return []string{}, nil
	}
	return all[uid], nil
}

// ------------------ Likes ------------------

// LikeSummary is what a book's like button shows.
type LikeSummary struct {
	Count     int  `json:"count"`
	LikedByMe bool `json:"likedByMe"`
}

// Likes maps a book to the users who liked it.
type Likes struct {
	*env
}

// Toggle flips uid's like on bookID and returns the resulting summary.
func (l *Likes) Toggle(ctx context.Context, bookID, uid string) (LikeSummary, error) {
	uid = l.ident.Normalize(uid)
	var sum LikeSummary
	err := kvstore.Update(ctx, l.store, keyLikes, func(all *map[string][]string) error {
		if *all == nil {
			*all = map[string][]string{}
		}
		users := (*all)[bookID]
		if slices.Contains(users, uid) {
			users = slices.DeleteFunc(users, func(id string) bool { return id == uid })
		} else {
			users = append(users, uid)
		}
		(*all)[bookID] = users
		sum = LikeSummary{Count: len(users), LikedByMe: slices.Contains(users, uid)}
		return nil
	})
	return sum, err
}

func (l *Likes) Get(ctx context.Context, bookID, uid string) (LikeSummary, error) {
	uid = l.ident.Normalize(uid)
	all, err := kvstore.Load[map[string][]string](ctx, l.store, keyLikes)
	if err != nil {
		return LikeSummary{}, err
	}
	users := all[bookID]
	return LikeSummary{Count: len(users), LikedByMe: slices.Contains(users, uid)}, nil
}

// ------------------ Reviews ------------------

// Reviews stores immutable book reviews.
type Reviews struct {
	*env
	users *Users
	books *Catalog
	notes *Notifications
}

// Add records a review under the author's current display name and tells
// the book's owner about it.
func (r *Reviews) Add(ctx context.Context, bookID, uid, text string) (Review, error) {
	uid = r.ident.Normalize(uid)
	text = strings.TrimSpace(text)
	if text == "" {
		return Review{}, fmt.Errorf("review text is empty: %w", ErrInvalidInput)
	}

	name := "Someone"
	if u, err := r.users.Get(ctx, uid); err == nil && u.Name != "" {
		name = u.Name
	}

	rev := Review{
		ID:       r.newID("r"),
		BookID:   bookID,
		UserID:   uid,
		UserName: name,
		Text:     text,
		At:       r.timestamp(),
	}
	err := kvstore.Update(ctx, r.store, keyReviews, func(all *[]Review) error {
		*all = append([]Review{rev}, *all...)
		return nil
	})
	if err != nil {
		return Review{}, err
	}

	if book, err := r.books.Get(ctx, bookID); err == nil && book.OwnerID != uid {
		msg := name + " reviewed your book"
		if _, err := r.notes.Add(ctx, book.OwnerID, msg, map[string]string{"bookId": bookID}); err != nil {
			r.log.Warn("review notification failed", "review", rev.ID, "err", err)
		}
	}
	return rev, nil
}

// List returns the reviews of bookID, newest first.
func (r *Reviews) List(ctx context.Context, bookID string) ([]Review, error) {
	all, err := kvstore.Load[[]Review](ctx, r.store, keyReviews)
	if err != nil {
		return nil, err
	}
	out := []Review{}
	for _, x := range all {
		if x.BookID == bookID {
			out = append(out, x)
		}
	}
	return out, nil
}
