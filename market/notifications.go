package market

import (
	"context"
	"maps"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// Notifications is the per-user inbox.
type Notifications struct {
	*env
}

// Add prepends a notification for uid. A "bookId" entry in extra becomes
// the deep-link BookID; the rest is kept as Extra.
func (n *Notifications) Add(ctx context.Context, uid, message string, extra map[string]string) (Notification, error) {
	note := Notification{
		ID:      n.newID("n"),
		UserID:  n.ident.Normalize(uid),
		Message: message,
		At:      n.timestamp(),
	}
	if len(extra) > 0 {
		rest := maps.Clone(extra)
		note.BookID = rest["bookId"]
		delete(rest, "bookId")
		if len(rest) > 0 {
			note.Extra = rest
		}
	}

	err := kvstore.Update(ctx, n.store, keyNotifications, func(all *[]Notification) error {
		*all = append([]Notification{note}, *all...)
		return nil
	})
	if err != nil {
		return Notification{}, err
	}
	return note, nil
}

// List returns every notification of uid, newest first.
func (n *Notifications) List(ctx context.Context, uid string) ([]Notification, error) {
	uid = n.ident.Normalize(uid)
	all, err := kvstore.Load[[]Notification](ctx, n.store, keyNotifications)
	if err != nil {
		return nil, err
	}
	out := []Notification{}
	for _, x := range all {
		if x.UserID == uid {
			out = append(out, x)
		}
	}
	return out, nil
}

// MarkAllSeen flips every notification of uid to seen.
func (n *Notifications) MarkAllSeen(ctx context.Context, uid string) error {
	uid = n.ident.Normalize(uid)
	return kvstore.Update(ctx, n.store, keyNotifications, func(all *[]Notification) error {
		for i := range *all {
			if (*all)[i].UserID == uid {
				(*all)[i].Seen = true
			}
		}
		return nil
	})
}

// UnseenCount is the badge number for uid.
func (n *Notifications) UnseenCount(ctx context.Context, uid string) (int, error) {
	list, err := n.List(ctx, uid)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, x := range list {
		if !x.Seen {
			count++
		}
	}
	return count, nil
}
