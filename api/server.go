// Package api exposes the marketplace services over HTTP.
package api

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/Sakshi-Saware/BookSwap/market"
)

const localUserID = "userID"

// Server routes HTTP requests to a Marketplace.
type Server struct {
	app      *fiber.App
	market   *market.Marketplace
	tokens   *TokenService
	external *ExternalVerifier
	log      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithExternalVerifier enables POST /api/auth/external. Without it the route
// is not registered.
func WithExternalVerifier(v *ExternalVerifier) Option {
	return func(s *Server) { s.external = v }
}

// New builds the fiber app and registers every route.
func New(m *market.Marketplace, tokens *TokenService, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{market: m, tokens: tokens, log: log}
	for _, opt := range opts {
		opt(s)
	}
	s.app = fiber.New(fiber.Config{
		AppName:      "BookSwap API",
		ErrorHandler: s.errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
	}))

	s.routes()
	return s
}

// App returns the underlying fiber app, mostly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("api listening", "addr", addr)
	return s.app.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
}

func (s *Server) Shutdown() error { return s.app.Shutdown() }

func (s *Server) routes() {
	auth := s.app.Group("/api/auth")
	auth.Post("/register", s.register)
	auth.Post("/register-cafe", s.registerCafe)
	auth.Post("/login", s.login)
	if s.external != nil {
		auth.Post("/external", s.mergeExternal)
	}

	books := s.app.Group("/api/books")
	books.Get("/", s.listBooks)
	books.Get("/:id", s.getBook)
	books.Get("/:id/reviews", s.listReviews)

	api := s.app.Group("/api", s.requireAuth)

	api.Get("/me", s.me)
	api.Patch("/me", s.updateMe)
	api.Get("/users/:id", s.getUser)
	api.Get("/friends", s.listFriends)

	api.Post("/books", s.addBook)
	api.Patch("/books/:id", s.updateBook)
	api.Delete("/books/:id", s.deleteBook)
	api.Post("/books/:id/reviews", s.addReview)
	api.Get("/books/:id/like", s.getLike)
	api.Post("/books/:id/like", s.toggleLike)

	api.Get("/wishlist", s.getWishlist)
	api.Put("/wishlist/:bookId", s.addWishlist)
	api.Delete("/wishlist/:bookId", s.removeWishlist)

	api.Get("/requests/outgoing", s.outgoingRequests)
	api.Get("/requests/incoming", s.incomingRequests)
	api.Post("/requests", s.createRequest)
	api.Put("/requests/:id/status", s.updateRequestStatus)

	api.Get("/chats", s.listChats)
	api.Post("/chats/messages", s.sendMessage)

	api.Get("/notifications", s.listNotifications)
	api.Post("/notifications/seen", s.markNotificationsSeen)

	api.Get("/events", s.listEvents)
	api.Get("/events/:id", s.getEvent)
	api.Post("/events", s.createEvent)
	api.Patch("/events/:id", s.updateEvent)
	api.Delete("/events/:id", s.deleteEvent)
	api.Post("/events/:id/rsvp", s.rsvpEvent)
	api.Put("/events/:id/attendees/:attendeeId", s.setAttendeeStatus)
	api.Get("/events/:id/comments", s.listEventComments)
	api.Post("/events/:id/comments", s.addEventComment)
	api.Post("/events/:id/reviews", s.addEventReview)
}

// requireAuth resolves the bearer token into the caller's user id.
func (s *Server) requireAuth(c fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header format")
	}
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
	}
	c.Locals(localUserID, s.market.Normalize(claims.Subject))
	return c.Next()
}

func callerID(c fiber.Ctx) string {
	uid, _ := c.Locals(localUserID).(string)
	return uid
}

func (s *Server) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.log.Debug("http request",
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"elapsed", time.Since(start),
	)
	return err
}

// errorHandler maps domain errors onto HTTP status codes.
func (s *Server) errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, market.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, market.ErrDuplicateRequest), errors.Is(err, market.ErrDuplicateIdentity):
		code = fiber.StatusConflict
	case errors.Is(err, market.ErrInvalidTransition), errors.Is(err, market.ErrEventFull):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, market.ErrInvalidCredentials):
		code = fiber.StatusUnauthorized
	case errors.Is(err, market.ErrInvalidInput):
		code = fiber.StatusBadRequest
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

func bind(c fiber.Ctx, v any) error {
	if err := c.Bind().Body(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return nil
}
