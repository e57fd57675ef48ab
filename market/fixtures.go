package market

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/default.yml
var defaultFixtures []byte

// Fixtures is the seed data written by Initialize.
type Fixtures struct {
	Users   []FixtureUser       `yaml:"users"`
	Books   []Book              `yaml:"books"`
	Chats   []FixtureChat       `yaml:"chats"`
	Friends map[string][]string `yaml:"friends"`
	Events  []Event             `yaml:"events"`
}

// FixtureUser carries a plain-text password that is hashed on seeding.
type FixtureUser struct {
	User     `yaml:",inline"`
	Password string `yaml:"password"`
}

type FixtureChat struct {
	ID           string           `yaml:"id"`
	Participants []string         `yaml:"participants"`
	Messages     []FixtureMessage `yaml:"messages"`
}

// FixtureMessage is timestamped relative to the seeding time.
type FixtureMessage struct {
	Sender string        `yaml:"sender"`
	Text   string        `yaml:"text"`
	Age    time.Duration `yaml:"age"`
}

// DefaultFixtures returns the built-in demo data.
func DefaultFixtures() (*Fixtures, error) {
	return ParseFixtures(defaultFixtures)
}

// LoadFixtures reads a fixture file from disk.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes YAML bytes.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if len(data) == 0 {
		return &fx, nil
	}
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixtures YAML: %w", err)
	}
	return &fx, nil
}

func (fx *Fixtures) users(e *env) ([]User, error) {
	out := make([]User, 0, len(fx.Users))
	for _, fu := range fx.Users {
		u := fu.User
		if u.ID == "" {
			u.ID = e.newID("u")
		}
		u.ID = e.ident.Normalize(u.ID)
		if u.Role == "" {
			u.Role = RoleReader
		}
		u.Genres = NormalizeGenres(u.Genres...)
		if fu.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(fu.Password), e.passwordCost)
			if err != nil {
				return nil, fmt.Errorf("hash password for %s: %w", u.Email, err)
			}
			u.PasswordHash = string(hash)
		}
		out = append(out, u)
	}
	return out, nil
}

func (fx *Fixtures) books(e *env) []Book {
	out := make([]Book, 0, len(fx.Books))
	for _, b := range fx.Books {
		if b.ID == "" {
			b.ID = e.newID("book")
		}
		b.OwnerID = e.ident.Normalize(b.OwnerID)
		b.Genre = NormalizeGenres(b.Genre...)
		if b.Condition == "" {
			b.Condition = ConditionGood
		}
		out = append(out, b)
	}
	return out
}

func (fx *Fixtures) chats(e *env) []Chat {
	now := e.timestamp()
	out := make([]Chat, 0, len(fx.Chats))
	for _, fc := range fx.Chats {
		c := Chat{ID: fc.ID, Messages: []Message{}}
		if c.ID == "" {
			c.ID = e.newID("chat")
		}
		for _, p := range fc.Participants {
			c.Participants = append(c.Participants, e.ident.Normalize(p))
		}
		for _, m := range fc.Messages {
			c.Messages = append(c.Messages, Message{
				ID:     e.newID("m"),
				Sender: e.ident.Normalize(m.Sender),
				Text:   m.Text,
				At:     now.Add(-m.Age),
			})
		}
		out = append(out, c)
	}
	return out
}

func (fx *Fixtures) events(e *env) []Event {
	out := make([]Event, 0, len(fx.Events))
	for _, ev := range fx.Events {
		if ev.ID == "" {
			ev.ID = e.newID("event")
		}
		if ev.HostID != "" {
			ev.HostID = e.ident.Normalize(ev.HostID)
		}
		for i := range ev.Attendees {
			if ev.Attendees[i].Status == "" {
				ev.Attendees[i].Status = AttendeePending
			}
		}
		if ev.Attendees == nil {
			ev.Attendees = []Attendee{}
		}
		if ev.Comments == nil {
			ev.Comments = []Comment{}
		}
		if ev.Reviews == nil {
			ev.Reviews = []Comment{}
		}
		out = append(out, ev)
	}
	return out
}

func (fx *Fixtures) friends(e *env) map[string][]string {
	out := map[string][]string{}
	for a, peers := range fx.Friends {
		a = e.ident.Normalize(a)
		for _, b := range peers {
			addEdge(out, a, e.ident.Normalize(b))
		}
	}
	return out
}
