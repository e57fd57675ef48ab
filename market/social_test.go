package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessageReusesPairChat(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)

	_, err := m.Messages.Send(ctx, "A", "B", "hi")
	require.NoError(t, err)
	msg, err := m.Messages.Send(ctx, "B", "A", "hey")
	require.NoError(t, err)
	assert.Equal(t, "B", msg.Sender)
	assert.Equal(t, testNow, msg.At)

	chats, err := m.Messages.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	require.Len(t, chats[0].Messages, 2)
	assert.Equal(t, "hi", chats[0].Messages[0].Text)
	assert.Equal(t, "hey", chats[0].Messages[1].Text)

	_, err = m.Messages.Send(ctx, "A", "C", "yo")
	require.NoError(t, err)
	mine, err := m.Messages.ChatsFor(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	theirs, err := m.Messages.ChatsFor(ctx, "C")
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}

func TestSendMessageNormalizesSender(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)

	msg, err := m.Messages.Send(ctx, "firebase:123", "u_alex", "hello")
	require.NoError(t, err)
	assert.Equal(t, GuestID, msg.Sender)

	_, err = m.Messages.Send(ctx, "", "u_alex", "again")
	require.NoError(t, err)
	chats, err := m.Messages.Chats(ctx)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestSendMessageRejectsEmptyAndSelf(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)

	_, err := m.Messages.Send(ctx, "A", "B", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = m.Messages.Send(ctx, "A", "A", "me")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFriendsFromChatsAndRequests(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	b := addBook(t, m, "owner", 0)

	_, err := m.Messages.Send(ctx, "A", "B", "hi")
	require.NoError(t, err)
	_, err = m.Requests.Create(ctx, RequestDraft{BookID: b.ID, FromUID: "A", Type: TypeBorrow})
	require.NoError(t, err)
	_, err = m.Messages.Send(ctx, "A", "owner", "is it free?")
	require.NoError(t, err)

	friends, err := m.Social.ListFriends(ctx, "A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"B", "owner"}, friends)

	friends, err = m.Social.ListFriends(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestRebuildRecoversLostAdjacency(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	b := addBook(t, m, "owner", 0)

	_, err := m.Requests.Create(ctx, RequestDraft{BookID: b.ID, FromUID: "A", Type: TypeBorrow})
	require.NoError(t, err)
	_, err = m.Messages.Send(ctx, "C", "A", "hello")
	require.NoError(t, err)

	require.NoError(t, m.env.store.Write(ctx, keyFriends, map[string][]string{"A": {"Z"}}))
	require.NoError(t, m.Social.Rebuild(ctx))

	friends, err := m.Social.ListFriends(ctx, "A")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Z", "owner", "C"}, friends)

	friends, err = m.Social.ListFriends(ctx, "Z")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, friends)
}
