package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/Sakshi-Saware/BookSwap/market"
)

// ------------------ Auth ------------------

type registerBody struct {
	market.UserDraft
	Password string `json:"password"`
}

type loginBody struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     market.Role `json:"role"`
}

type session struct {
	Token string      `json:"token"`
	User  market.User `json:"user"`
}

func (s *Server) issue(c fiber.Ctx, status int, u market.User) error {
	token, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return err
	}
	return c.Status(status).JSON(session{Token: token, User: u})
}

func (s *Server) register(c fiber.Ctx) error {
	var body registerBody
	if err := bind(c, &body); err != nil {
		return err
	}
	u, err := s.market.Users.Register(c.Context(), body.UserDraft, body.Password)
	if err != nil {
		return err
	}
	return s.issue(c, fiber.StatusCreated, u)
}

func (s *Server) registerCafe(c fiber.Ctx) error {
	var body registerBody
	if err := bind(c, &body); err != nil {
		return err
	}
	u, err := s.market.Users.RegisterCafe(c.Context(), body.UserDraft, body.Password)
	if err != nil {
		return err
	}
	return s.issue(c, fiber.StatusCreated, u)
}

func (s *Server) login(c fiber.Ctx) error {
	var body loginBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if body.Role == "" {
		body.Role = market.RoleAny
	}
	u, err := s.market.Users.Authenticate(c.Context(), body.Email, body.Password, body.Role)
	if err != nil {
		return err
	}
	return s.issue(c, fiber.StatusOK, u)
}

type externalBody struct {
	Assertion string `json:"assertion"`
}

// mergeExternal trades a provider-signed assertion for a local session.
func (s *Server) mergeExternal(c fiber.Ctx) error {
	var body externalBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if body.Assertion == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing identity assertion")
	}
	ext, err := s.external.Verify(body.Assertion)
	if err != nil {
		s.log.Warn("external sign-in refused", "err", err)
		return fiber.NewError(fiber.StatusUnauthorized, "invalid identity assertion")
	}
	u, err := s.market.Users.MergeExternal(c.Context(), ext)
	if err != nil {
		return err
	}
	return s.issue(c, fiber.StatusOK, u)
}

// ------------------ Users ------------------

func (s *Server) me(c fiber.Ctx) error {
	u, err := s.market.Users.Get(c.Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (s *Server) updateMe(c fiber.Ctx) error {
	var patch market.UserPatch
	if err := bind(c, &patch); err != nil {
		return err
	}
	u, err := s.market.Users.Update(c.Context(), callerID(c), patch)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (s *Server) getUser(c fiber.Ctx) error {
	u, err := s.market.Users.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(u)
}

func (s *Server) listFriends(c fiber.Ctx) error {
	ids, err := s.market.Social.ListFriends(c.Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(ids)
}

// ------------------ Books ------------------

func (s *Server) listBooks(c fiber.Ctx) error {
	books, err := s.market.Books.List(c.Context(), market.Filter{
		Query:    c.Query("q"),
		Location: c.Query("location"),
	})
	if err != nil {
		return err
	}
	return c.JSON(books)
}

func (s *Server) getBook(c fiber.Ctx) error {
	b, err := s.market.Books.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(b)
}

func (s *Server) addBook(c fiber.Ctx) error {
	var d market.BookDraft
	if err := bind(c, &d); err != nil {
		return err
	}
	d.OwnerID = callerID(c)
	b, err := s.market.Books.Add(c.Context(), d)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

// ownBook fails unless the caller owns book id.
func (s *Server) ownBook(c fiber.Ctx, id string) error {
	b, err := s.market.Books.Get(c.Context(), id)
	if err != nil {
		return err
	}
	if b.OwnerID != callerID(c) {
		return fiber.NewError(fiber.StatusForbidden, "not the owner of this book")
	}
	return nil
}

func (s *Server) updateBook(c fiber.Ctx) error {
	id := c.Params("id")
	if err := s.ownBook(c, id); err != nil {
		return err
	}
	var p market.BookPatch
	if err := bind(c, &p); err != nil {
		return err
	}
	b, err := s.market.Books.Update(c.Context(), id, p)
	if err != nil {
		return err
	}
	return c.JSON(b)
}

func (s *Server) deleteBook(c fiber.Ctx) error {
	id := c.Params("id")
	if err := s.ownBook(c, id); err != nil {
		return err
	}
	if err := s.market.Books.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type textBody struct {
	Text string `json:"text"`
}

func (s *Server) listReviews(c fiber.Ctx) error {
	list, err := s.market.Reviews.List(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) addReview(c fiber.Ctx) error {
	var body textBody
	if err := bind(c, &body); err != nil {
		return err
	}
	r, err := s.market.Reviews.Add(c.Context(), c.Params("id"), callerID(c), body.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

func (s *Server) getLike(c fiber.Ctx) error {
	sum, err := s.market.Likes.Get(c.Context(), c.Params("id"), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

func (s *Server) toggleLike(c fiber.Ctx) error {
	sum, err := s.market.Likes.Toggle(c.Context(), c.Params("id"), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(sum)
}

// ------------------ Wishlist ------------------

func (s *Server) getWishlist(c fiber.Ctx) error {
	ids, err := s.market.Wishlists.Get(c.Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(ids)
}

func (s *Server) addWishlist(c fiber.Ctx) error {
	if err := s.market.Wishlists.Add(c.Context(), callerID(c), c.Params("bookId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) removeWishlist(c fiber.Ctx) error {
	if err := s.market.Wishlists.Remove(c.Context(), callerID(c), c.Params("bookId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ------------------ Requests ------------------

func (s *Server) outgoingRequests(c fiber.Ctx) error {
	list, err := s.market.Requests.Outgoing(c.Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) incomingRequests(c fiber.Ctx) error {
	list, err := s.market.Requests.Incoming(c.Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) createRequest(c fiber.Ctx) error {
	var d market.RequestDraft
	if err := bind(c, &d); err != nil {
		return err
	}
	d.FromUID = callerID(c)
	r, err := s.market.Requests.Create(c.Context(), d)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(r)
}

type statusBody struct {
	Status string `json:"status"`
}

// updateRequestStatus lets the requester cancel and the owner decide.
func (s *Server) updateRequestStatus(c fiber.Ctx) error {
	var body statusBody
	if err := bind(c, &body); err != nil {
		return err
	}
	next, err := market.ParseStatus(body.Status)
	if err != nil {
		return err
	}
	req, err := s.market.Requests.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	actor := req.ToUID
	if next == market.StatusCancelled {
		actor = req.FromUID
	}
	if callerID(c) != actor {
		return fiber.NewError(fiber.StatusForbidden, "not allowed to set this status")
	}
	out, err := s.market.Requests.UpdateStatus(c.Context(), req.ID, next)
	if err != nil {
		return err
	}
	return c.JSON(out)
}

// ------------------ Chats & notifications ------------------

func (s *Server) listChats(c fiber.Ctx) error {
	chats, err := s.market.Messages.ChatsFor(c.Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(chats)
}

type messageBody struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

func (s *Server) sendMessage(c fiber.Ctx) error {
	var body messageBody
	if err := bind(c, &body); err != nil {
		return err
	}
	msg, err := s.market.Messages.Send(c.Context(), callerID(c), body.To, body.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (s *Server) listNotifications(c fiber.Ctx) error {
	list, err := s.market.Notifications.List(c.Context(), callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) markNotificationsSeen(c fiber.Ctx) error {
	if err := s.market.Notifications.MarkAllSeen(c.Context(), callerID(c)); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ------------------ Events ------------------

func (s *Server) listEvents(c fiber.Ctx) error {
	list, err := s.market.Events.List(c.Context(), c.Query("category", market.CategoryAll))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) getEvent(c fiber.Ctx) error {
	e, err := s.market.Events.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(e)
}

func (s *Server) createEvent(c fiber.Ctx) error {
	var d market.EventDraft
	if err := bind(c, &d); err != nil {
		return err
	}
	d.HostID = callerID(c)
	e, err := s.market.Events.Create(c.Context(), d)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

// hostEvent fails unless the caller hosts event id.
func (s *Server) hostEvent(c fiber.Ctx, id string) error {
	e, err := s.market.Events.Get(c.Context(), id)
	if err != nil {
		return err
	}
	if e.HostID != callerID(c) {
		return fiber.NewError(fiber.StatusForbidden, "not the host of this event")
	}
	return nil
}

func (s *Server) updateEvent(c fiber.Ctx) error {
	id := c.Params("id")
	if err := s.hostEvent(c, id); err != nil {
		return err
	}
	var p market.EventPatch
	if err := bind(c, &p); err != nil {
		return err
	}
	if err := s.market.Events.Update(c.Context(), id, p); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteEvent(c fiber.Ctx) error {
	id := c.Params("id")
	if err := s.hostEvent(c, id); err != nil {
		return err
	}
	if err := s.market.Events.Delete(c.Context(), id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) participant(c fiber.Ctx) market.Participant {
	p := market.Participant{ID: callerID(c)}
	if u, err := s.market.Users.Get(c.Context(), p.ID); err == nil {
		p.Name = u.Name
	}
	return p
}

func (s *Server) rsvpEvent(c fiber.Ctx) error {
	e, err := s.market.Events.RSVP(c.Context(), c.Params("id"), s.participant(c))
	if err != nil {
		return err
	}
	return c.JSON(e)
}

func (s *Server) setAttendeeStatus(c fiber.Ctx) error {
	id := c.Params("id")
	if err := s.hostEvent(c, id); err != nil {
		return err
	}
	var body statusBody
	if err := bind(c, &body); err != nil {
		return err
	}
	err := s.market.Events.SetAttendeeStatus(c.Context(), id, c.Params("attendeeId"), market.AttendeeStatus(body.Status))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listEventComments(c fiber.Ctx) error {
	list, err := s.market.Events.Comments(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(list)
}

func (s *Server) addEventComment(c fiber.Ctx) error {
	var body textBody
	if err := bind(c, &body); err != nil {
		return err
	}
	cm, err := s.market.Events.AddComment(c.Context(), c.Params("id"), s.participant(c), body.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cm)
}

func (s *Server) addEventReview(c fiber.Ctx) error {
	var body textBody
	if err := bind(c, &body); err != nil {
		return err
	}
	cm, err := s.market.Events.AddReview(c.Context(), c.Params("id"), s.participant(c), body.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cm)
}
