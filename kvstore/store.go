package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrCapacityExceeded is reported when the backend refuses a value because
// of its size or because the medium is full. It never aborts a service call;
// it reaches callers through the store's warning handler.
var ErrCapacityExceeded = errors.New("storage capacity exceeded")

// DefaultMaxValueBytes caps a single collection blob, mirroring the quota a
// browser gives one origin's local storage.
const DefaultMaxValueBytes = 5 << 20

// Backend persists raw collection blobs by key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// Warning describes a write that succeeded in this session but was not
// persisted.
type Warning struct {
	Key string
	Err error
}

func (w Warning) Error() string {
	return fmt.Sprintf("collection %q not persisted: %v", w.Key, w.Err)
}

// Store is the typed, lock-aware view over a Backend that every service
// reads and writes through. Construct it once in the composition root.
type Store struct {
	backend       Backend
	logger        *slog.Logger
	onWarning     func(Warning)
	maxValueBytes int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	// session holds values whose last write the backend rejected, so the
	// mutation stays visible until the process exits.
	session map[string][]byte
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWarningHandler registers the capacity side-channel.
func WithWarningHandler(fn func(Warning)) Option {
	return func(s *Store) { s.onWarning = fn }
}

// WithMaxValueBytes overrides DefaultMaxValueBytes. Zero or negative disables
// the check.
func WithMaxValueBytes(n int) Option {
	return func(s *Store) { s.maxValueBytes = n }
}

// New wraps backend in a Store.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:       backend,
		logger:        slog.Default(),
		maxValueBytes: DefaultMaxValueBytes,
		locks:         make(map[string]*sync.Mutex),
		session:       make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the backend.
func (s *Store) Close() error { return s.backend.Close() }

func (s *Store) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Read decodes the collection at key into v. Absent and malformed values
// both report false; a malformed value is logged and otherwise ignored.
func (s *Store) Read(ctx context.Context, key string, v any) (bool, error) {
	unlock := s.lock(key)
	defer unlock()
	return s.read(ctx, key, v)
}

// Write encodes v and stores it at key.
func (s *Store) Write(ctx context.Context, key string, v any) error {
	unlock := s.lock(key)
	defer unlock()
	return s.write(ctx, key, v)
}

// Exists reports whether key holds a decodable value.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var raw json.RawMessage
	return s.Read(ctx, key, &raw)
}

func (s *Store) raw(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	data, ok := s.session[key]
	s.mu.Unlock()
	if ok {
		return data, true, nil
	}
	data, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, ok, nil
}

func (s *Store) read(ctx context.Context, key string, v any) (bool, error) {
	data, ok, err := s.raw(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if len(data) == 0 || string(data) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.Error("corrupt collection ignored", "key", key, "err", err)
		return false, nil
	}
	return true, nil
}

func (s *Store) write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if s.maxValueBytes > 0 && len(data) > s.maxValueBytes {
		s.keep(key, data, fmt.Errorf("%w: %d bytes over limit %d", ErrCapacityExceeded, len(data), s.maxValueBytes))
		return nil
	}

	if err := s.backend.Put(ctx, key, data); err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			s.keep(key, data, err)
			return nil
		}
		return fmt.Errorf("write %s: %w", key, err)
	}

	s.mu.Lock()
	delete(s.session, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) keep(key string, data []byte, err error) {
	s.mu.Lock()
	s.session[key] = data
	s.mu.Unlock()

	w := Warning{Key: key, Err: err}
	s.logger.Warn("write kept in session only", "key", key, "bytes", len(data), "err", err)
	if s.onWarning != nil {
		s.onWarning(w)
	}
}

// Load returns the collection at key, or the zero value when it is absent
// or unreadable.
func Load[T any](ctx context.Context, s *Store, key string) (T, error) {
	var v T
	ok, err := s.Read(ctx, key, &v)
	if err != nil || !ok {
		var zero T
		return zero, err
	}
	return v, nil
}

// Update runs one read-modify-write of the collection at key. fn sees the
// current value (zero when absent) and may change it in place; returning an
// error leaves the stored value untouched. Calls on the same key are
// serialized.
func Update[T any](ctx context.Context, s *Store, key string, fn func(*T) error) error {
	unlock := s.lock(key)
	defer unlock()

	var v T
	ok, err := s.read(ctx, key, &v)
	if err != nil {
		return err
	}
	if !ok {
		// a failed decode may have partially filled v
		var zero T
		v = zero
	}
	if err := fn(&v); err != nil {
		return err
	}
	return s.write(ctx, key, v)
}
