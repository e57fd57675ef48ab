package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// Catalog manages book listings.
type Catalog struct {
	*env
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Query    string // matches title, author, or any genre
	Location string
}

// Apply returns the subset of books matching all non-empty filter fields.
func (f Filter) Apply(books []Book) []Book {
	out := []Book{}
	for _, b := range books {
		if f.Query != "" && !matchesQuery(b, f.Query) {
			continue
		}
		if f.Location != "" && !strings.Contains(strings.ToLower(b.Location), strings.ToLower(f.Location)) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func matchesQuery(b Book, q string) bool {
	hay := b.Title + " " + b.Author + " " + strings.Join(b.Genre, " ")
	return strings.Contains(strings.ToLower(hay), strings.ToLower(q))
}

// BookDraft is the caller-supplied part of a new listing.
type BookDraft struct {
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       Genres    `json:"genre"`
	Condition   Condition `json:"condition"`
	OwnerID     string    `json:"ownerId"`
	Deposit     int       `json:"deposit"`
	Location    string    `json:"location"`
	Cover       string    `json:"cover"`
	Description string    `json:"description"`
}

// BookPatch changes the non-nil fields of a listing.
type BookPatch struct {
	Title       *string    `json:"title"`
	Author      *string    `json:"author"`
	Genre       Genres     `json:"genre"`
	Condition   *Condition `json:"condition"`
	Deposit     *int       `json:"deposit"`
	Location    *string    `json:"location"`
	Cover       *string    `json:"cover"`
	Available   *bool      `json:"available"`
	Description *string    `json:"description"`
}

func validCondition(c Condition) bool {
	switch c {
	case ConditionNew, ConditionGood, ConditionReadable:
		return true
	}
	return false
}

// List returns books matching f, most recent first.
func (c *Catalog) List(ctx context.Context, f Filter) ([]Book, error) {
	books, err := kvstore.Load[[]Book](ctx, c.store, keyBooks)
	if err != nil {
		return nil, err
	}
	return f.Apply(books), nil
}

// Get returns the book with id.
func (c *Catalog) Get(ctx context.Context, id string) (Book, error) {
	books, err := kvstore.Load[[]Book](ctx, c.store, keyBooks)
	if err != nil {
		return Book{}, err
	}
	for _, b := range books {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, fmt.Errorf("book %s: %w", id, ErrNotFound)
}

// Add lists a new book ahead of the existing ones.
func (c *Catalog) Add(ctx context.Context, d BookDraft) (Book, error) {
	if strings.TrimSpace(d.Title) == "" {
		return Book{}, fmt.Errorf("book title is required: %w", ErrInvalidInput)
	}
	if d.Deposit < 0 {
		return Book{}, fmt.Errorf("deposit %d is negative: %w", d.Deposit, ErrInvalidInput)
	}
	if d.Condition == "" {
		d.Condition = ConditionGood
	}
	if !validCondition(d.Condition) {
		return Book{}, fmt.Errorf("condition %q: %w", d.Condition, ErrInvalidInput)
	}

	b := Book{
		ID:          c.newID("book"),
		Title:       strings.TrimSpace(d.Title),
		Author:      strings.TrimSpace(d.Author),
		Genre:       NormalizeGenres(d.Genre...),
		Condition:   d.Condition,
		OwnerID:     c.ident.Normalize(d.OwnerID),
		Deposit:     d.Deposit,
		Location:    strings.TrimSpace(d.Location),
		Cover:       d.Cover,
		Available:   true,
		Description: d.Description,
	}

	err := kvstore.Update(ctx, c.store, keyBooks, func(books *[]Book) error {
		*books = append([]Book{b}, *books...)
		return nil
	})
	if err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update applies p to the book with id. Genre is re-normalized when given
// and kept otherwise.
func (c *Catalog) Update(ctx context.Context, id string, p BookPatch) (Book, error) {
	if p.Deposit != nil && *p.Deposit < 0 {
		return Book{}, fmt.Errorf("deposit %d is negative: %w", *p.Deposit, ErrInvalidInput)
	}
	if p.Condition != nil && !validCondition(*p.Condition) {
		return Book{}, fmt.Errorf("condition %q: %w", *p.Condition, ErrInvalidInput)
	}

	var updated Book
	err := kvstore.Update(ctx, c.store, keyBooks, func(books *[]Book) error {
		for i := range *books {
			b := &(*books)[i]
			if b.ID != id {
				continue
			}
			if p.Title != nil {
				b.Title = strings.TrimSpace(*p.Title)
			}
			if p.Author != nil {
				b.Author = strings.TrimSpace(*p.Author)
			}
			if p.Genre != nil {
				b.Genre = NormalizeGenres(p.Genre...)
			} else {
				b.Genre = NormalizeGenres(b.Genre...)
			}
			if p.Condition != nil {
				b.Condition = *p.Condition
			}
			if p.Deposit != nil {
				b.Deposit = *p.Deposit
			}
			if p.Location != nil {
				b.Location = strings.TrimSpace(*p.Location)
			}
			if p.Cover != nil {
				b.Cover = *p.Cover
			}
			if p.Available != nil {
				b.Available = *p.Available
			}
			if p.Description != nil {
				b.Description = *p.Description
			}
			updated = *b
			return nil
		}
		return fmt.Errorf("book %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return Book{}, err
	}
	return updated, nil
}

// Delete removes the book with id. Requests that reference it keep the
// dangling id.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	return kvstore.Update(ctx, c.store, keyBooks, func(books *[]Book) error {
		kept := (*books)[:0]
		for _, b := range *books {
			if b.ID != id {
				kept = append(kept, b)
			}
		}
		*books = kept
		return nil
	})
}

// ByOwner returns the listings of one user.
func (c *Catalog) ByOwner(ctx context.Context, ownerID string) ([]Book, error) {
	books, err := kvstore.Load[[]Book](ctx, c.store, keyBooks)
	if err != nil {
		return nil, err
	}
	owner := c.ident.Normalize(ownerID)
	out := []Book{}
	for _, b := range books {
		if b.OwnerID == owner {
			out = append(out, b)
		}
	}
	return out, nil
}
