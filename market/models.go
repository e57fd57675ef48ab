package market

import "time"

// Role distinguishes readers from cafés hosting events.
type Role string

const (
	RoleReader Role = "reader"
	RoleCafe   Role = "cafe"
)

// User is a registered reader or café. PasswordHash is persisted but never
// returned from a service call.
type User struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Email        string   `json:"email" yaml:"email"`
	PasswordHash string   `json:"passwordHash,omitempty" yaml:"-"`
	Role         Role     `json:"role" yaml:"role"`
	Location     string   `json:"location" yaml:"location"`
	Bio          string   `json:"bio,omitempty" yaml:"bio,omitempty"`
	Genres       []string `json:"genres,omitempty" yaml:"genres,omitempty"`
	Photo        string   `json:"photo,omitempty" yaml:"photo,omitempty"`
	Rating       float64  `json:"rating" yaml:"rating"`
	Badges       []string `json:"badges,omitempty" yaml:"badges,omitempty"`
	// ExternalID links the account to an identity provider subject.
	ExternalID string `json:"externalId,omitempty" yaml:"externalId,omitempty"`
}

// Condition is the physical state of a listed book.
type Condition string

const (
	ConditionNew      Condition = "New"
	ConditionGood     Condition = "Good"
	ConditionReadable Condition = "Readable"
)

// Book is a listing owned by exactly one user.
type Book struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Author      string    `json:"author" yaml:"author"`
	Genre       []string  `json:"genre" yaml:"genre"`
	Condition   Condition `json:"condition" yaml:"condition"`
	OwnerID     string    `json:"ownerId" yaml:"ownerId"`
	Deposit     int       `json:"deposit" yaml:"deposit"`
	Location    string    `json:"location" yaml:"location"`
	Cover       string    `json:"cover,omitempty" yaml:"cover,omitempty"`
	Available   bool      `json:"available" yaml:"available"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
}

// RequestType is Borrow or Swap.
type RequestType string

const (
	TypeBorrow RequestType = "Borrow"
	TypeSwap   RequestType = "Swap"
)

// TimelineEntry is one line of a request's audit log.
type TimelineEntry struct {
	Timestamp time.Time `json:"ts"`
	Event     string    `json:"event"`
}

// Request is a borrow or swap proposal from FromUID to the owner ToUID.
type Request struct {
	ID            string          `json:"id"`
	BookID        string          `json:"bookId"`
	FromUID       string          `json:"fromUid"`
	ToUID         string          `json:"toUid"`
	Type          RequestType     `json:"type"`
	Message       string          `json:"message"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Deposit       int             `json:"deposit"`
	PaymentMethod string          `json:"paymentMethod"`
	PickupMethod  string          `json:"pickupMethod"`
	Status        Status          `json:"status"`
	Timeline      []TimelineEntry `json:"timeline"`
}

// Review is an immutable comment on a book. UserName is the author's name
// at the time of writing.
type Review struct {
	ID       string    `json:"id"`
	BookID   string    `json:"bookId"`
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// Notification is one inbox entry. BookID deep-links to a listing.
type Notification struct {
	ID      string            `json:"id"`
	UserID  string            `json:"userId"`
	Message string            `json:"message"`
	Seen    bool              `json:"seen"`
	At      time.Time         `json:"at"`
	BookID  string            `json:"bookId,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Message is one chat line.
type Message struct {
	ID     string    `json:"id" yaml:"id"`
	Sender string    `json:"sender" yaml:"sender"`
	Text   string    `json:"text" yaml:"text"`
	At     time.Time `json:"at" yaml:"at"`
}

// Chat is the single thread between two participants.
type Chat struct {
	ID           string    `json:"id" yaml:"id"`
	Participants []string  `json:"participants" yaml:"participants"`
	Messages     []Message `json:"messages" yaml:"messages"`
}

// AttendeeStatus moderates an event attendee.
type AttendeeStatus string

const (
	AttendeePending  AttendeeStatus = "pending"
	AttendeeApproved AttendeeStatus = "approved"
	AttendeeRejected AttendeeStatus = "rejected"
)

// Attendee is a user on an event roster.
type Attendee struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name" yaml:"name"`
	Status AttendeeStatus `json:"status" yaml:"status"`
}

// Comment is a note left on an event.
type Comment struct {
	ID       string    `json:"id" yaml:"id"`
	UserID   string    `json:"userId" yaml:"userId"`
	UserName string    `json:"userName" yaml:"userName"`
	Text     string    `json:"text" yaml:"text"`
	At       time.Time `json:"at" yaml:"at"`
}

// Event is a community gathering, usually hosted by a café.
type Event struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Description  string     `json:"description" yaml:"description"`
	Category     string     `json:"category" yaml:"category"`
	Date         string     `json:"date" yaml:"date"`
	Time         string     `json:"time" yaml:"time"`
	Location     string     `json:"location" yaml:"location"`
	MapsLink     string     `json:"mapsLink,omitempty" yaml:"mapsLink,omitempty"`
	Banner       string     `json:"banner,omitempty" yaml:"banner,omitempty"`
	Host         string     `json:"host" yaml:"host"`
	HostID       string     `json:"hostId" yaml:"hostId"`
	MaxAttendees int        `json:"maxAttendees" yaml:"maxAttendees"`
	Attendees    []Attendee `json:"attendees" yaml:"attendees"`
	Comments     []Comment  `json:"comments" yaml:"comments"`
	Reviews      []Comment  `json:"reviews" yaml:"reviews"`
}

// meta is the persisted initialization record.
type meta struct {
	SchemaVersion int       `json:"schemaVersion"`
	Seeded        bool      `json:"seeded"`
	SeededAt      time.Time `json:"seededAt"`
}

// Collection keys.
const (
	keyUsers         = "users_v1"
	keyBooks         = "books_v1"
	keyRequests      = "requests_v1"
	keyWishlists     = "wishlists_v1"
	keyLikes         = "likes_v1"
	keyReviews       = "reviews_v1"
	keyNotifications = "notifications_v1"
	keyChats         = "chats_v1"
	keyFriends       = "friends_v1"
	keyEvents        = "events_v1"
	keyMeta          = "meta_v1"
)

// SchemaVersion is written to the meta collection on initialization.
const SchemaVersion = 1
