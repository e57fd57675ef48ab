package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// Status is the lifecycle state of a Request.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusAccepted  Status = "Accepted"
	StatusRejected  Status = "Rejected"
	StatusReturned  Status = "Returned"
	StatusCancelled Status = "Cancelled"
)

// allowedTransitions lists the legal next states. Rejected, Returned and
// Cancelled are terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted: {StatusReturned},
}

// CanTransition reports whether a request in from may move to to.
func CanTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Active reports whether s still blocks a new request for the same book.
func (s Status) Active() bool { return s == StatusPending || s == StatusAccepted }

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, error) {
	for _, st := range []Status{StatusPending, StatusAccepted, StatusRejected, StatusReturned, StatusCancelled} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("status %q: %w", s, ErrInvalidInput)
}

// DueOption is one of the loan lengths offered to borrowers.
type DueOption string

const (
	DueOneWeek  DueOption = "1 week"
	DueTwoWeeks DueOption = "2 weeks"
	DueOneMonth DueOption = "1 month"
	DueCustom   DueOption = "Custom"
)

// DueDate resolves a loan length relative to now. Custom returns custom
// unchanged; unknown options fall back to one month.
func DueDate(opt DueOption, custom time.Time, now time.Time) time.Time {
	switch opt {
	case DueOneWeek:
		return now.AddDate(0, 0, 7)
	case DueTwoWeeks:
		return now.AddDate(0, 0, 14)
	case DueCustom:
		return custom
	}
	return now.AddDate(0, 0, 30)
}

// RequestDraft is what a requester submits.
type RequestDraft struct {
	BookID        string      `json:"bookId"`
	FromUID       string      `json:"fromUid"`
	ToUID         string      `json:"toUid"`
	Type          RequestType `json:"type"`
	Message       string      `json:"message"`
	DueDate       *time.Time  `json:"dueDate,omitempty"`
	Deposit       int         `json:"deposit"`
	PaymentMethod string      `json:"paymentMethod"`
	PickupMethod  string      `json:"pickupMethod"`
}

// Requests runs the borrow/swap lifecycle.
type Requests struct {
	*env
	books  *Catalog
	social *Social
	notes  *Notifications
}

// Create files a new Pending request. It fails with ErrDuplicateRequest
// while the requester holds an active request on the same book.
func (r *Requests) Create(ctx context.Context, d RequestDraft) (Request, error) {
	from := r.ident.Normalize(d.FromUID)
	if d.BookID == "" {
		return Request{}, fmt.Errorf("book id is required: %w", ErrInvalidInput)
	}
	if d.Type == "" {
		d.Type = TypeBorrow
	}
	if d.Type != TypeBorrow && d.Type != TypeSwap {
		return Request{}, fmt.Errorf("request type %q: %w", d.Type, ErrInvalidInput)
	}

	book, err := r.books.Get(ctx, d.BookID)
	bookKnown := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Request{}, err
	}

	to := d.ToUID
	if to == "" && bookKnown {
		to = book.OwnerID
	}
	to = r.ident.Normalize(to)
	if to == from {
		return Request{}, fmt.Errorf("cannot request your own book: %w", ErrInvalidInput)
	}

	deposit := 0
	due := d.DueDate
	if d.Type == TypeBorrow {
		if bookKnown {
			deposit = book.Deposit
		} else {
			deposit = max(d.Deposit, 0)
		}
	} else {
		due = nil
	}

	now := r.timestamp()
	req := Request{
		ID:            r.newID("req"),
		BookID:        d.BookID,
		FromUID:       from,
		ToUID:         to,
		Type:          d.Type,
		Message:       d.Message,
		DueDate:       due,
		Deposit:       deposit,
		PaymentMethod: d.PaymentMethod,
		PickupMethod:  d.PickupMethod,
		Status:        StatusPending,
		Timeline:      []TimelineEntry{{Timestamp: now, Event: "Request Sent"}},
	}

	err = kvstore.Update(ctx, r.store, keyRequests, func(all *[]Request) error {
		for _, x := range *all {
			if x.FromUID == from && x.BookID == d.BookID && x.Status.Active() {
				return fmt.Errorf("request %s on book %s: %w", x.ID, d.BookID, ErrDuplicateRequest)
			}
		}
		*all = append([]Request{req}, *all...)
		return nil
	})
	if err != nil {
		return Request{}, err
	}

	if err := r.social.link(ctx, from, to); err != nil {
		r.log.Warn("friends link failed", "request", req.ID, "err", err)
	}
	title := d.BookID
	if bookKnown {
		title = book.Title
	}
	r.notify(ctx, to, fmt.Sprintf("New %s request for %q", strings.ToLower(string(d.Type)), title), req)
	return req, nil
}

// Get returns the request with id.
func (r *Requests) Get(ctx context.Context, id string) (Request, error) {
	all, err := kvstore.Load[[]Request](ctx, r.store, keyRequests)
	if err != nil {
		return Request{}, err
	}
	for _, x := range all {
		if x.ID == id {
			return x, nil
		}
	}
	return Request{}, fmt.Errorf("request %s: %w", id, ErrNotFound)
}

// Outgoing lists requests sent by uid.
func (r *Requests) Outgoing(ctx context.Context, uid string) ([]Request, error) {
	uid = r.ident.Normalize(uid)
	return r.filter(ctx, func(x Request) bool { return x.FromUID == uid })
}

// Incoming lists requests addressed to uid.
func (r *Requests) Incoming(ctx context.Context, uid string) ([]Request, error) {
	uid = r.ident.Normalize(uid)
	return r.filter(ctx, func(x Request) bool { return x.ToUID == uid })
}

func (r *Requests) filter(ctx context.Context, keep func(Request) bool) ([]Request, error) {
	all, err := kvstore.Load[[]Request](ctx, r.store, keyRequests)
	if err != nil {
		return nil, err
	}
	out := []Request{}
	for _, x := range all {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out, nil
}

// UpdateStatus moves a request to next. Cancelling deletes the record; the
// returned copy then carries StatusCancelled. Illegal moves fail with
// ErrInvalidTransition and leave the record untouched.
func (r *Requests) UpdateStatus(ctx context.Context, id string, next Status) (Request, error) {
	var out Request
	err := kvstore.Update(ctx, r.store, keyRequests, func(all *[]Request) error {
		for i := range *all {
			x := &(*all)[i]
			if x.ID != id {
				continue
			}
			if !CanTransition(x.Status, next) {
				return fmt.Errorf("request %s %s -> %s: %w", id, x.Status, next, ErrInvalidTransition)
			}
			if next == StatusCancelled {
				out = *x
				out.Status = StatusCancelled
				*all = append((*all)[:i], (*all)[i+1:]...)
				return nil
			}
			x.Status = next
			x.Timeline = append(x.Timeline, TimelineEntry{Timestamp: r.timestamp(), Event: string(next)})
			out = *x
			return nil
		}
		return fmt.Errorf("request %s: %w", id, ErrNotFound)
	})
	if err != nil {
		return Request{}, err
	}

	// The requester cancels; everything else is the owner's move.
	if next == StatusCancelled {
		r.notify(ctx, out.ToUID, "A request for your book was cancelled", out)
	} else {
		r.notify(ctx, out.FromUID, fmt.Sprintf("Your request was %s", strings.ToLower(string(next))), out)
	}
	return out, nil
}

func (r *Requests) notify(ctx context.Context, uid, msg string, req Request) {
	extra := map[string]string{"bookId": req.BookID, "requestId": req.ID}
	if _, err := r.notes.Add(ctx, uid, msg, extra); err != nil {
		r.log.Warn("request notification failed", "request", req.ID, "err", err)
	}
}
