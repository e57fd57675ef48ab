package market

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGenres(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"comma string", []string{"Fiction, Drama"}, []string{"Fiction", "Drama"}},
		{"array", []string{" Fiction", "Drama "}, []string{"Fiction", "Drama"}},
		{"empties dropped", []string{"Fiction,, ,Drama", ""}, []string{"Fiction", "Drama"}},
		{"repeats kept in order", []string{"Drama, Fiction, Drama"}, []string{"Drama", "Fiction", "Drama"}},
		{"nothing", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeGenres(tt.in...)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeGenres(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenresUnmarshal(t *testing.T) {
	var d BookDraft
	require.NoError(t, json.Unmarshal([]byte(`{"genre":"Fiction, Philosophy"}`), &d))
	assert.Equal(t, Genres{"Fiction", "Philosophy"}, d.Genre)

	require.NoError(t, json.Unmarshal([]byte(`{"genre":[" Programming ",""]}`), &d))
	assert.Equal(t, Genres{"Programming"}, d.Genre)

	assert.Error(t, json.Unmarshal([]byte(`{"genre":42}`), &d))
}

func TestAddBookPrependsAndNormalizes(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)

	first := addBook(t, m, "u1", 0)
	second, err := m.Books.Add(ctx, BookDraft{
		Title:   "  Clean Code ",
		Author:  "Robert C. Martin",
		Genre:   Genres{"Programming, Craft"},
		OwnerID: "firebase:xyz",
		Deposit: 250,
	})
	require.NoError(t, err)

	assert.Equal(t, "Clean Code", second.Title)
	assert.Equal(t, []string{"Programming", "Craft"}, second.Genre)
	assert.Equal(t, GuestID, second.OwnerID)
	assert.Equal(t, ConditionGood, second.Condition)
	assert.True(t, second.Available)

	books, err := m.Books.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, second.ID, books[0].ID)
	assert.Equal(t, first.ID, books[1].ID)
}

func TestAddBookRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	for _, d := range []BookDraft{
		{Title: ""},
		{Title: "x", Deposit: -1},
		{Title: "x", Condition: "Mint"},
	} {
		if _, err := m.Books.Add(ctx, d); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Add(%+v) err = %v, want ErrInvalidInput", d, err)
		}
	}
}

func TestUpdateBook(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	b := addBook(t, m, "u1", 50)

	title := "Renamed"
	got, err := m.Books.Update(ctx, b.ID, BookPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, []string{"Fiction"}, got.Genre, "genre kept when not patched")
	assert.Equal(t, 50, got.Deposit)

	got, err = m.Books.Update(ctx, b.ID, BookPatch{Genre: Genres{"Drama ,  Poetry"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Drama", "Poetry"}, got.Genre)

	_, err = m.Books.Update(ctx, "missing", BookPatch{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBookNullGenreKeepsGenres(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	b := addBook(t, m, "u1", 0)

	var p BookPatch
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","genre":null}`), &p))
	if p.Genre != nil {
		t.Fatalf("Genre = %#v, want nil", p.Genre)
	}

	got, err := m.Books.Update(ctx, b.ID, p)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Title)
	assert.Equal(t, []string{"Fiction"}, got.Genre)
}

func TestDeleteBookIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	b := addBook(t, m, "u1", 0)

	require.NoError(t, m.Books.Delete(ctx, b.ID))
	require.NoError(t, m.Books.Delete(ctx, b.ID))

	_, err := m.Books.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilterApply(t *testing.T) {
	books := []Book{
		{ID: "1", Title: "The Alchemist", Author: "Paulo Coelho", Genre: []string{"Fiction"}, Location: "MG Road"},
		{ID: "2", Title: "Clean Code", Author: "Robert C. Martin", Genre: []string{"Programming"}, Location: "Baner"},
		{ID: "3", Title: "Ponniyin Selvan", Author: "Kalki", Genre: []string{"Historical"}, Location: "Khar"},
	}
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"1", "2", "3"}},
		{"title", Filter{Query: "alchemist"}, []string{"1"}},
		{"author", Filter{Query: "MARTIN"}, []string{"2"}},
		{"genre", Filter{Query: "histor"}, []string{"3"}},
		{"location", Filter{Location: "baner"}, []string{"2"}},
		{"and", Filter{Query: "code", Location: "khar"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []string{}
			for _, b := range tt.filter.Apply(books) {
				got = append(got, b.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestByOwner(t *testing.T) {
	ctx := context.Background()
	m := newMarket(t)
	addBook(t, m, "u1", 0)
	addBook(t, m, "u2", 0)
	addBook(t, m, "u1", 0)

	mine, err := m.Books.ByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
