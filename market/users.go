package market

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// RoleAny matches every role in Authenticate.
const RoleAny Role = "both"

// MaxPhotoBytes bounds inline images kept on a profile.
const MaxPhotoBytes = 300000

// UserDraft is a signup form.
type UserDraft struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Location string   `json:"location"`
	Bio      string   `json:"bio"`
	Genres   Genres   `json:"genres"`
	Photo    string   `json:"photo"`
	Badges   []string `json:"badges"`
}

// UserPatch changes the non-nil fields of a profile.
type UserPatch struct {
	Name     *string `json:"name"`
	Location *string `json:"location"`
	Bio      *string `json:"bio"`
	Genres   Genres  `json:"genres"`
	Photo    *string `json:"photo"`
}

// ExternalIdentity is what an identity provider reports after sign-in.
type ExternalIdentity struct {
	ExternalID    string `json:"externalId"`
	DisplayName   string `json:"displayName"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	AvatarURL     string `json:"avatarUrl"`
}

// Users manages reader and café accounts.
type Users struct {
	*env
}

// Register creates a reader account.
func (u *Users) Register(ctx context.Context, d UserDraft, password string) (User, error) {
	return u.create(ctx, d, password, RoleReader, "u")
}

// RegisterCafe creates a café account.
func (u *Users) RegisterCafe(ctx context.Context, d UserDraft, password string) (User, error) {
	return u.create(ctx, d, password, RoleCafe, "cafe")
}

func (u *Users) create(ctx context.Context, d UserDraft, password string, role Role, prefix string) (User, error) {
	email := strings.TrimSpace(d.Email)
	if email == "" {
		return User{}, fmt.Errorf("email is required: %w", ErrInvalidInput)
	}
	if password == "" {
		return User{}, fmt.Errorf("password is required: %w", ErrInvalidInput)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.passwordCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	id := d.ID
	if id == "" {
		id = u.newID(prefix)
	}
	user := User{
		ID:           u.ident.Normalize(id),
		Name:         strings.TrimSpace(d.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Location:     strings.TrimSpace(d.Location),
		Bio:          d.Bio,
		Genres:       NormalizeGenres(d.Genres...),
		Photo:        u.checkPhoto(email, d.Photo),
		Badges:       d.Badges,
	}

	err = kvstore.Update(ctx, u.store, keyUsers, func(all *[]User) error {
		for _, x := range *all {
			if strings.EqualFold(x.Email, email) {
				return fmt.Errorf("%s: %w", email, ErrDuplicateIdentity)
			}
			if x.ID == user.ID {
				return fmt.Errorf("user id %s taken: %w", user.ID, ErrDuplicateIdentity)
			}
		}
		*all = append([]User{user}, *all...)
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return safe(user), nil
}

func (u *Users) checkPhoto(who, photo string) string {
	if len(photo) > MaxPhotoBytes {
		u.log.Warn("profile image too large, not saved", "user", who, "bytes", len(photo))
		return ""
	}
	return photo
}

// Authenticate checks email and password. role narrows the match unless it
// is RoleAny. Any mismatch yields ErrInvalidCredentials.
func (u *Users) Authenticate(ctx context.Context, email, password string, role Role) (User, error) {
	all, err := kvstore.Load[[]User](ctx, u.store, keyUsers)
	if err != nil {
		return User{}, err
	}
	for _, x := range all {
		if !strings.EqualFold(x.Email, strings.TrimSpace(email)) {
			continue
		}
		if role != RoleAny && x.Role != role {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(x.PasswordHash), []byte(password)) == nil {
			return safe(x), nil
		}
	}
	return User{}, ErrInvalidCredentials
}

// Get returns the user with id.
func (u *Users) Get(ctx context.Context, id string) (User, error) {
	id = u.ident.Normalize(id)
	all, err := kvstore.Load[[]User](ctx, u.store, keyUsers)
	if err != nil {
		return User{}, err
	}
	for _, x := range all {
		if x.ID == id {
			return safe(x), nil
		}
	}
	return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
}

func (u *Users) List(ctx context.Context) ([]User, error) {
	all, err := kvstore.Load[[]User](ctx, u.store, keyUsers)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(all))
	for _, x := range all {
		out = append(out, safe(x))
	}
	return out, nil
}

// Update applies p to the profile of id.
func (u *Users) Update(ctx context.Context, id string, p UserPatch) (User, error) {
	id = u.ident.Normalize(id)
	var updated User
	err := kvstore.Update(ctx, u.store, keyUsers, func(all *[]User) error {
		for i := range *all {
			x := &(*all)[i]
			if x.ID != id {
				continue
			}
			if p.Name != nil {
				x.Name = strings.TrimSpace(*p.Name)
			}
			if p.Location != nil {
				x.Location = strings.TrimSpace(*p.Location)
			}
			if p.Bio != nil {
				x.Bio = *p.Bio
			}
			if p.Genres != nil {
				x.Genres = NormalizeGenres(p.Genres...)
			}
			if p.Photo != nil {
				if photo := u.checkPhoto(x.Email, *p.Photo); photo != "" || *p.Photo == "" {
					x.Photo = photo
				}
			}
			updated = *x
			return nil
		}
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return User{}, err
	}
	return safe(updated), nil
}

// MergeExternal returns the local user linked to a provider identity,
// creating one on first sign-in. The provider subject is matched only against
// previously linked accounts, never against local ids. An existing account is
// linked by email only when the provider vouches for the email. ext must
// come from a verified provider assertion.
func (u *Users) MergeExternal(ctx context.Context, ext ExternalIdentity) (User, error) {
	ext.ExternalID = strings.TrimSpace(ext.ExternalID)
	ext.Email = strings.TrimSpace(ext.Email)
	if ext.ExternalID == "" {
		return User{}, fmt.Errorf("external id is required: %w", ErrInvalidInput)
	}
	var merged User
	err := kvstore.Update(ctx, u.store, keyUsers, func(all *[]User) error {
		for _, x := range *all {
			if x.ExternalID == ext.ExternalID {
				merged = x
				return nil
			}
		}
		if ext.Email != "" {
			for i, x := range *all {
				if !strings.EqualFold(x.Email, ext.Email) {
					continue
				}
				if !ext.EmailVerified || x.ExternalID != "" {
					return fmt.Errorf("email %s: %w", ext.Email, ErrDuplicateIdentity)
				}
				(*all)[i].ExternalID = ext.ExternalID
				merged = (*all)[i]
				return nil
			}
		}
		merged = User{
			ID:         u.newID("ext"),
			Name:       ext.DisplayName,
			Email:      ext.Email,
			Role:       RoleReader,
			Photo:      u.checkPhoto(ext.Email, ext.AvatarURL),
			ExternalID: ext.ExternalID,
		}
		*all = append([]User{merged}, *all...)
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return safe(merged), nil
}

// Exists reports whether id names a user.
func (u *Users) Exists(ctx context.Context, id string) (bool, error) {
	_, err := u.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func safe(u User) User {
	u.PasswordHash = ""
	return u
}
