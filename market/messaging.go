package market

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// Messaging holds one chat per unordered pair of users.
type Messaging struct {
	*env
	social *Social
}

// Chats returns every chat.
func (m *Messaging) Chats(ctx context.Context) ([]Chat, error) {
	chats, err := kvstore.Load[[]Chat](ctx, m.store, keyChats)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []Chat{}
	}
	return chats, nil
}

// ChatsFor returns the chats uid takes part in.
func (m *Messaging) ChatsFor(ctx context.Context, uid string) ([]Chat, error) {
	uid = m.ident.Normalize(uid)
	all, err := m.Chats(ctx)
	if err != nil {
		return nil, err
	}
	out := []Chat{}
	for _, c := range all {
		if slices.Contains(c.Participants, uid) {
			out = append(out, c)
		}
	}
	return out, nil
}

func samePair(c Chat, a, b string) bool {
	if len(c.Participants) != 2 {
		return false
	}
	p, q := c.Participants[0], c.Participants[1]
	return (p == a && q == b) || (p == b && q == a)
}

// Send appends text from -> to, opening the pair's chat on first contact.
func (m *Messaging) Send(ctx context.Context, from, to, text string) (Message, error) {
	from, to = m.ident.Normalize(from), m.ident.Normalize(to)
	if strings.TrimSpace(text) == "" {
		return Message{}, fmt.Errorf("message text is empty: %w", ErrInvalidInput)
	}
	if from == to {
		return Message{}, fmt.Errorf("cannot message yourself: %w", ErrInvalidInput)
	}

	msg := Message{ID: m.newID("m"), Sender: from, Text: text, At: m.timestamp()}
	opened := false
	err := kvstore.Update(ctx, m.store, keyChats, func(chats *[]Chat) error {
		for i := range *chats {
			if samePair((*chats)[i], from, to) {
				(*chats)[i].Messages = append((*chats)[i].Messages, msg)
				return nil
			}
		}
		*chats = append(*chats, Chat{
			ID:           m.newID("chat"),
			Participants: []string{from, to},
			Messages:     []Message{msg},
		})
		opened = true
		return nil
	})
	if err != nil {
		return Message{}, err
	}

	if opened {
		if err := m.social.link(ctx, from, to); err != nil {
			m.log.Warn("friends link failed", "from", from, "to", to, "err", err)
		}
	}
	return msg, nil
}
