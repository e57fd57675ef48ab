package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// CategoryAll disables the category filter in Events.List.
const CategoryAll = "all"

// Participant identifies the user joining or commenting on an event.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EventDraft describes a new event.
type EventDraft struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Location     string `json:"location"`
	MapsLink     string `json:"mapsLink"`
	Banner       string `json:"banner"`
	Host         string `json:"host"`
	HostID       string `json:"hostId"`
	MaxAttendees int    `json:"maxAttendees"`
}

// EventPatch changes the non-nil fields of an event.
type EventPatch struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Category     *string `json:"category"`
	Date         *string `json:"date"`
	Time         *string `json:"time"`
	Location     *string `json:"location"`
	MapsLink     *string `json:"mapsLink"`
	Banner       *string `json:"banner"`
	MaxAttendees *int    `json:"maxAttendees"`
}

// Events manages café-hosted gatherings.
type Events struct {
	*env
	users *Users
}

// List returns events of category, or all of them for "" and CategoryAll.
func (ev *Events) List(ctx context.Context, category string) ([]Event, error) {
	all, err := kvstore.Load[[]Event](ctx, ev.store, keyEvents)
	if err != nil {
		return nil, err
	}
	out := []Event{}
	for _, e := range all {
		if category == "" || category == CategoryAll || e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

func (ev *Events) Get(ctx context.Context, id string) (Event, error) {
	all, err := kvstore.Load[[]Event](ctx, ev.store, keyEvents)
	if err != nil {
		return Event{}, err
	}
	for _, e := range all {
		if e.ID == id {
			return e, nil
		}
	}
	return Event{}, fmt.Errorf("event %s: %w", id, ErrNotFound)
}

// Create adds an event with an empty roster. A missing Host is filled from
// the host user's name.
func (ev *Events) Create(ctx context.Context, d EventDraft) (Event, error) {
	if strings.TrimSpace(d.Title) == "" {
		return Event{}, fmt.Errorf("event title is required: %w", ErrInvalidInput)
	}
	if d.MaxAttendees < 0 {
		return Event{}, fmt.Errorf("max attendees %d: %w", d.MaxAttendees, ErrInvalidInput)
	}
	hostID := ev.ident.Normalize(d.HostID)
	host := d.Host
	if host == "" {
		if u, err := ev.users.Get(ctx, hostID); err == nil {
			host = u.Name
		}
	}

	e := Event{
		ID:           ev.newID("event"),
		Title:        strings.TrimSpace(d.Title),
		Description:  d.Description,
		Category:     d.Category,
		Date:         d.Date,
		Time:         d.Time,
		Location:     d.Location,
		MapsLink:     d.MapsLink,
		Banner:       d.Banner,
		Host:         host,
		HostID:       hostID,
		MaxAttendees: d.MaxAttendees,
		Attendees:    []Attendee{},
		Comments:     []Comment{},
		Reviews:      []Comment{},
	}
	err := kvstore.Update(ctx, ev.store, keyEvents, func(all *[]Event) error {
		*all = append(*all, e)
		return nil
	})
	if err != nil {
		return Event{}, err
	}
	return e, nil
}

// Update merges p into the event with id. An unknown id is ignored.
func (ev *Events) Update(ctx context.Context, id string, p EventPatch) error {
	return ev.modify(ctx, id, false, func(e *Event) error {
		set := func(dst *string, src *string) {
			if src != nil {
				*dst = *src
			}
		}
		set(&e.Title, p.Title)
		set(&e.Description, p.Description)
		set(&e.Category, p.Category)
		set(&e.Date, p.Date)
		set(&e.Time, p.Time)
		set(&e.Location, p.Location)
		set(&e.MapsLink, p.MapsLink)
		set(&e.Banner, p.Banner)
		if p.MaxAttendees != nil {
			e.MaxAttendees = max(*p.MaxAttendees, 0)
		}
		return nil
	})
}

// Delete removes the event with id, if any.
func (ev *Events) Delete(ctx context.Context, id string) error {
	return kvstore.Update(ctx, ev.store, keyEvents, func(all *[]Event) error {
		kept := (*all)[:0]
		for _, e := range *all {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		*all = kept
		return nil
	})
}

// RSVP puts p on the roster as pending. Joining twice is a no-op. Rejected
// attendees do not count towards MaxAttendees.
func (ev *Events) RSVP(ctx context.Context, eventID string, p Participant) (Event, error) {
	uid := ev.ident.Normalize(p.ID)
	name := ev.displayName(ctx, uid, p.Name)
	var out Event
	err := ev.modify(ctx, eventID, true, func(e *Event) error {
		taken := 0
		for _, a := range e.Attendees {
			if a.ID == uid {
				out = *e
				return nil
			}
			if a.Status != AttendeeRejected {
				taken++
			}
		}
		if e.MaxAttendees > 0 && taken >= e.MaxAttendees {
			return fmt.Errorf("event %s: %w", eventID, ErrEventFull)
		}
		e.Attendees = append(e.Attendees, Attendee{ID: uid, Name: name, Status: AttendeePending})
		out = *e
		return nil
	})
	if err != nil {
		return Event{}, err
	}
	return out, nil
}

// SetAttendeeStatus moderates one attendee.
func (ev *Events) SetAttendeeStatus(ctx context.Context, eventID, attendeeID string, status AttendeeStatus) error {
	switch status {
	case AttendeePending, AttendeeApproved, AttendeeRejected:
	default:
		return fmt.Errorf("attendee status %q: %w", status, ErrInvalidInput)
	}
	attendeeID = ev.ident.Normalize(attendeeID)
	return ev.modify(ctx, eventID, true, func(e *Event) error {
		for i := range e.Attendees {
			if e.Attendees[i].ID == attendeeID {
				e.Attendees[i].Status = status
				return nil
			}
		}
		return fmt.Errorf("attendee %s on event %s: %w", attendeeID, eventID, ErrNotFound)
	})
}

// AddComment appends a comment by p.
func (ev *Events) AddComment(ctx context.Context, eventID string, p Participant, text string) (Comment, error) {
	return ev.appendNote(ctx, eventID, p, text, func(e *Event) *[]Comment { return &e.Comments })
}

// AddReview appends a post-event review by p.
func (ev *Events) AddReview(ctx context.Context, eventID string, p Participant, text string) (Comment, error) {
	return ev.appendNote(ctx, eventID, p, text, func(e *Event) *[]Comment { return &e.Reviews })
}

// Comments lists the comments on an event, oldest first.
func (ev *Events) Comments(ctx context.Context, eventID string) ([]Comment, error) {
	e, err := ev.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if e.Comments == nil {
		return []Comment{}, nil
	}
	return e.Comments, nil
}

func (ev *Events) appendNote(ctx context.Context, eventID string, p Participant, text string, target func(*Event) *[]Comment) (Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Comment{}, fmt.Errorf("comment text is empty: %w", ErrInvalidInput)
	}
	uid := ev.ident.Normalize(p.ID)
	c := Comment{
		ID:       ev.newID("comm"),
		UserID:   uid,
		UserName: ev.displayName(ctx, uid, p.Name),
		Text:     text,
		At:       ev.timestamp(),
	}
	err := ev.modify(ctx, eventID, true, func(e *Event) error {
		list := target(e)
		*list = append(*list, c)
		return nil
	})
	if err != nil {
		return Comment{}, err
	}
	return c, nil
}

func (ev *Events) displayName(ctx context.Context, uid, given string) string {
	if given != "" {
		return given
	}
	if u, err := ev.users.Get(ctx, uid); err == nil && u.Name != "" {
		return u.Name
	}
	return "User"
}

// modify runs fn on the event with id inside one collection update.
func (ev *Events) modify(ctx context.Context, id string, mustExist bool, fn func(*Event) error) error {
	return kvstore.Update(ctx, ev.store, keyEvents, func(all *[]Event) error {
		for i := range *all {
			if (*all)[i].ID == id {
				return fn(&(*all)[i])
			}
		}
		if mustExist {
			return fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil
	})
}
