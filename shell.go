package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/Sakshi-Saware/BookSwap/market"
)

// shell is the interactive session. uid is the guest id until login.
type shell struct {
	ctx  context.Context
	sc   *bufio.Scanner
	m    *market.Marketplace
	uid  string
	name string
	tty  bool
}

func runShell(ctx context.Context, m *market.Marketplace, in io.Reader) error {
	sh := &shell{
		ctx:  ctx,
		sc:   bufio.NewScanner(in),
		m:    m,
		uid:  m.Normalize(""),
		name: "guest",
		tty:  in == os.Stdin && term.IsTerminal(int(syscall.Stdin)),
	}

	fmt.Println("Welcome to BookSwap!")
	sh.help()

	for {
		if ctx.Err() != nil {
			return nil
		}
		fmt.Printf("\n%s> ", color.HiBlackString(sh.name))
		if !sh.sc.Scan() {
			return sh.sc.Err()
		}
		cmd := strings.TrimSpace(sh.sc.Text())

		switch cmd {
		case "":
		case "help":
			sh.help()
		case "register":
			sh.register()
		case "login":
			sh.login()
		case "logout":
			sh.uid, sh.name = sh.m.Normalize(""), "guest"
			ok("logged out")
		case "whoami":
			sh.whoami()
		case "list books":
			sh.listBooks(market.Filter{})
		case "search book":
			sh.searchBooks()
		case "show book":
			sh.showBook()
		case "my books":
			sh.myBooks()
		case "add book":
			sh.addBook()
		case "update book":
			sh.updateBook()
		case "delete book":
			sh.deleteBook()
		case "request book":
			sh.requestBook()
		case "outgoing":
			sh.listRequests(true)
		case "incoming":
			sh.listRequests(false)
		case "accept":
			sh.setStatus(market.StatusAccepted)
		case "reject":
			sh.setStatus(market.StatusRejected)
		case "cancel":
			sh.setStatus(market.StatusCancelled)
		case "return":
			sh.setStatus(market.StatusReturned)
		case "wishlist":
			sh.showWishlist()
		case "wishlist add":
			sh.wishlist(true)
		case "wishlist remove":
			sh.wishlist(false)
		case "like":
			sh.like()
		case "reviews":
			sh.listReviews()
		case "review":
			sh.addReview()
		case "friends":
			sh.friends()
		case "chats":
			sh.chats()
		case "send message":
			sh.sendMessage()
		case "notifications":
			sh.notifications()
		case "mark seen":
			if err := sh.m.Notifications.MarkAllSeen(sh.ctx, sh.uid); err != nil {
				failed("mark seen", err)
				continue
			}
			ok("all caught up")
		case "events":
			sh.events()
		case "rsvp":
			sh.rsvp()
		case "comment":
			sh.comment()
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return nil
		default:
			fmt.Println("Unknown command. Type 'help' to see what is available.")
		}
	}
}

func (sh *shell) help() {
	fmt.Println("Available commands:")
	fmt.Println("  Account: register, login, logout, whoami")
	fmt.Println("  Books: list books, search book, show book, my books, add book, update book, delete book")
	fmt.Println("  Requests: request book, outgoing, incoming, accept, reject, cancel, return")
	fmt.Println("  Social: wishlist, wishlist add, wishlist remove, like, reviews, review")
	fmt.Println("  Chat: friends, chats, send message")
	fmt.Println("  Inbox: notifications, mark seen")
	fmt.Println("  Events: events, rsvp, comment")
	fmt.Println("  System: help, exit")
}

// ask prints prompt and returns the trimmed answer. ok is false on EOF.
func (sh *shell) ask(prompt string) (string, bool) {
	fmt.Print(prompt)
	if !sh.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sh.sc.Text()), true
}

// readPassword reads a password without echo on a terminal.
func (sh *shell) readPassword(prompt string) (string, error) {
	if !sh.tty {
		s, _ := sh.ask(prompt)
		return s, nil
	}
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(bytePassword)), nil
}

// ------------------ Account ------------------

func (sh *shell) register() {
	name, ok1 := sh.ask("Name: ")
	email, ok2 := sh.ask("Email: ")
	location, ok3 := sh.ask("Location: ")
	genres, ok4 := sh.ask("Favourite genres (comma separated): ")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}
	password, err := sh.readPassword("Password: ")
	if err != nil {
		failed("read password", err)
		return
	}
	u, err := sh.m.Users.Register(sh.ctx, market.UserDraft{
		Name:     name,
		Email:    email,
		Location: location,
		Genres:   market.NormalizeGenres(genres),
	}, password)
	if err != nil {
		failed("register", err)
		return
	}
	sh.uid, sh.name = u.ID, u.Name
	ok("welcome, %s (%s)", u.Name, u.ID)
}

func (sh *shell) login() {
	email, ok1 := sh.ask("Email: ")
	if !ok1 {
		return
	}
	password, err := sh.readPassword("Password: ")
	if err != nil {
		failed("read password", err)
		return
	}
	u, err := sh.m.Users.Authenticate(sh.ctx, email, password, market.RoleAny)
	if err != nil {
		failed("login", err)
		return
	}
	sh.uid, sh.name = u.ID, u.Name
	ok("logged in as %s", u.Name)
	if n, err := sh.m.Notifications.UnseenCount(sh.ctx, u.ID); err == nil && n > 0 {
		warn("%d unseen notification(s)", n)
	}
}

func (sh *shell) whoami() {
	u, err := sh.m.Users.Get(sh.ctx, sh.uid)
	if err != nil {
		fmt.Printf("You are browsing as guest (%s).\n", sh.uid)
		return
	}
	fmt.Printf("%s <%s> %s, %s\n", u.Name, u.Email, u.Role, u.Location)
	if len(u.Genres) > 0 {
		fmt.Println("Genres:", strings.Join(u.Genres, ", "))
	}
}

// ------------------ Books ------------------

func (sh *shell) listBooks(f market.Filter) {
	books, err := sh.m.Books.List(sh.ctx, f)
	if err != nil {
		failed("list books", err)
		return
	}
	printBooks(books)
}

func printBooks(books []market.Book) {
	if len(books) == 0 {
		fmt.Println("No books found.")
		return
	}
	fmt.Printf("%-24s %-30s %-20s %-9s %-8s %s\n", "ID", "Title", "Author", "Condition", "Deposit", "Available")
	fmt.Println(strings.Repeat("-", 105))
	for _, b := range books {
		avail := "Yes"
		if !b.Available {
			avail = "No"
		}
		fmt.Printf("%-24s %-30s %-20s %-9s %-8d %s\n",
			truncateString(b.ID, 24),
			truncateString(b.Title, 30),
			truncateString(b.Author, 20),
			b.Condition,
			b.Deposit,
			avail)
	}
}

func (sh *shell) searchBooks() {
	q, ok1 := sh.ask("Search (title, author or genre): ")
	loc, ok2 := sh.ask("Location (optional): ")
	if !ok1 || !ok2 {
		return
	}
	sh.listBooks(market.Filter{Query: q, Location: loc})
}

func (sh *shell) showBook() {
	id, ok1 := sh.ask("Book ID: ")
	if !ok1 {
		return
	}
	b, err := sh.m.Books.Get(sh.ctx, id)
	if err != nil {
		failed("show book", err)
		return
	}
	header("%s by %s", b.Title, b.Author)
	fmt.Printf("Genre: %s\nCondition: %s\nDeposit: %d\nLocation: %s\nOwner: %s\n",
		strings.Join(b.Genre, ", "), b.Condition, b.Deposit, b.Location, b.OwnerID)
	if b.Description != "" {
		fmt.Println(b.Description)
	}
	if likes, err := sh.m.Likes.Get(sh.ctx, b.ID, sh.uid); err == nil {
		mark := ""
		if likes.LikedByMe {
			mark = " (including you)"
		}
		fmt.Printf("Likes: %d%s\n", likes.Count, mark)
	}
}

func (sh *shell) myBooks() {
	books, err := sh.m.Books.ByOwner(sh.ctx, sh.uid)
	if err != nil {
		failed("my books", err)
		return
	}
	printBooks(books)
}

func (sh *shell) addBook() {
	title, ok1 := sh.ask("Title: ")
	author, ok2 := sh.ask("Author: ")
	genre, ok3 := sh.ask("Genres (comma separated): ")
	cond, ok4 := sh.ask("Condition [New/Good/Readable] (default Good): ")
	dep, ok5 := sh.ask("Deposit (default 0): ")
	loc, ok6 := sh.ask("Location: ")
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return
	}
	deposit, err := parseAmount(dep)
	if err != nil {
		failed("add book", err)
		return
	}
	b, err := sh.m.Books.Add(sh.ctx, market.BookDraft{
		Title:     title,
		Author:    author,
		Genre:     market.NormalizeGenres(genre),
		Condition: market.Condition(cond),
		OwnerID:   sh.uid,
		Deposit:   deposit,
		Location:  loc,
	})
	if err != nil {
		failed("add book", err)
		return
	}
	ok("listed %q as %s", b.Title, b.ID)
}

// ownBook loads id and checks the caller owns it.
func (sh *shell) ownBook(id string) (market.Book, bool) {
	b, err := sh.m.Books.Get(sh.ctx, id)
	if err != nil {
		failed("find book", err)
		return b, false
	}
	if b.OwnerID != sh.uid {
		warn("only the owner can change %s", id)
		return b, false
	}
	return b, true
}

func (sh *shell) updateBook() {
	id, ok1 := sh.ask("Book ID: ")
	if !ok1 {
		return
	}
	if _, mine := sh.ownBook(id); !mine {
		return
	}
	fmt.Println("Leave a field empty to keep it.")
	title, _ := sh.ask("Title: ")
	dep, _ := sh.ask("Deposit: ")
	avail, _ := sh.ask("Available [y/n]: ")

	var p market.BookPatch
	if title != "" {
		p.Title = &title
	}
	if dep != "" {
		d, err := parseAmount(dep)
		if err != nil {
			failed("update book", err)
			return
		}
		p.Deposit = &d
	}
	switch strings.ToLower(avail) {
	case "y", "yes":
		v := true
		p.Available = &v
	case "n", "no":
		v := false
		p.Available = &v
	}
	b, err := sh.m.Books.Update(sh.ctx, id, p)
	if err != nil {
		failed("update book", err)
		return
	}
	ok("updated %q", b.Title)
}

func (sh *shell) deleteBook() {
	id, ok1 := sh.ask("Book ID: ")
	if !ok1 {
		return
	}
	if _, mine := sh.ownBook(id); !mine {
		return
	}
	if err := sh.m.Books.Delete(sh.ctx, id); err != nil {
		failed("delete book", err)
		return
	}
	ok("deleted %s", id)
}

func parseAmount(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return n, nil
}

// ------------------ Requests ------------------

func (sh *shell) requestBook() {
	id, ok1 := sh.ask("Book ID: ")
	kind, ok2 := sh.ask("Type [Borrow/Swap] (default Borrow): ")
	if !ok1 || !ok2 {
		return
	}
	draft := market.RequestDraft{BookID: id, FromUID: sh.uid, Type: market.RequestType(kind)}
	if strings.EqualFold(kind, string(market.TypeSwap)) {
		draft.Type = market.TypeSwap
	} else {
		draft.Type = market.TypeBorrow
		opt, ok3 := sh.ask("Loan length [1 week/2 weeks/1 month/Custom]: ")
		if !ok3 {
			return
		}
		var custom time.Time
		if market.DueOption(opt) == market.DueCustom {
			raw, _ := sh.ask("Due date (YYYY-MM-DD): ")
			t, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				failed("request book", fmt.Errorf("bad date %q", raw))
				return
			}
			custom = t
		}
		due := market.DueDate(market.DueOption(opt), custom, time.Now())
		draft.DueDate = &due
	}
	msg, _ := sh.ask("Message to the owner: ")
	pickup, _ := sh.ask("Pickup method (optional): ")
	draft.Message, draft.PickupMethod = msg, pickup

	r, err := sh.m.Requests.Create(sh.ctx, draft)
	if err != nil {
		failed("request book", err)
		return
	}
	ok("%s request %s sent (deposit %d)", r.Type, r.ID, r.Deposit)
}

func (sh *shell) listRequests(outgoing bool) {
	var (
		reqs []market.Request
		err  error
	)
	if outgoing {
		reqs, err = sh.m.Requests.Outgoing(sh.ctx, sh.uid)
	} else {
		reqs, err = sh.m.Requests.Incoming(sh.ctx, sh.uid)
	}
	if err != nil {
		failed("list requests", err)
		return
	}
	if len(reqs) == 0 {
		fmt.Println("No requests.")
		return
	}
	fmt.Printf("%-24s %-24s %-7s %-9s %-12s %s\n", "ID", "Book", "Type", "Status", "Due", "With")
	fmt.Println(strings.Repeat("-", 100))
	for _, r := range reqs {
		due := "-"
		if r.DueDate != nil {
			due = r.DueDate.Format(time.DateOnly)
		}
		with := r.ToUID
		if !outgoing {
			with = r.FromUID
		}
		fmt.Printf("%-24s %-24s %-7s %-9s %-12s %s\n",
			truncateString(r.ID, 24), truncateString(r.BookID, 24), r.Type, statusColor(r.Status), due, with)
	}
}

func statusColor(s market.Status) string {
	switch s {
	case market.StatusAccepted:
		return color.GreenString("%-9s", s)
	case market.StatusRejected:
		return color.RedString("%-9s", s)
	case market.StatusPending:
		return color.YellowString("%-9s", s)
	}
	return string(s)
}

func (sh *shell) setStatus(next market.Status) {
	id, ok1 := sh.ask("Request ID: ")
	if !ok1 {
		return
	}
	r, err := sh.m.Requests.Get(sh.ctx, id)
	if err != nil {
		failed("find request", err)
		return
	}
	// Requesters may only cancel; owners decide everything else.
	if next == market.StatusCancelled && r.FromUID != sh.uid {
		warn("only the requester can cancel %s", id)
		return
	}
	if next != market.StatusCancelled && r.ToUID != sh.uid {
		warn("only the book owner can mark %s %s", id, next)
		return
	}
	if _, err := sh.m.Requests.UpdateStatus(sh.ctx, id, next); err != nil {
		failed(strings.ToLower(string(next)), err)
		return
	}
	ok("request %s is now %s", id, next)
}

// ------------------ Wishlist, likes, reviews ------------------

func (sh *shell) showWishlist() {
	ids, err := sh.m.Wishlists.Get(sh.ctx, sh.uid)
	if err != nil {
		failed("wishlist", err)
		return
	}
	var books []market.Book
	for _, id := range ids {
		b, err := sh.m.Books.Get(sh.ctx, id)
		if err != nil {
			b = market.Book{ID: id, Title: "(removed)"}
		}
		books = append(books, b)
	}
	printBooks(books)
}

func (sh *shell) wishlist(add bool) {
	id, ok1 := sh.ask("Book ID: ")
	if !ok1 {
		return
	}
	if add {
		if err := sh.m.Wishlists.Add(sh.ctx, sh.uid, id); err != nil {
			failed("wishlist add", err)
			return
		}
		ok("saved %s", id)
		return
	}
	if err := sh.m.Wishlists.Remove(sh.ctx, sh.uid, id); err != nil {
		failed("wishlist remove", err)
		return
	}
	ok("removed %s", id)
}

func (sh *shell) like() {
	id, ok1 := sh.ask("Book ID: ")
	if !ok1 {
		return
	}
	s, err := sh.m.Likes.Toggle(sh.ctx, id, sh.uid)
	if err != nil {
		failed("like", err)
		return
	}
	verb := "unliked"
	if s.LikedByMe {
		verb = "liked"
	}
	ok("%s %s (%d likes)", verb, id, s.Count)
}

func (sh *shell) listReviews() {
	id, ok1 := sh.ask("Book ID: ")
	if !ok1 {
		return
	}
	reviews, err := sh.m.Reviews.List(sh.ctx, id)
	if err != nil {
		failed("reviews", err)
		return
	}
	if len(reviews) == 0 {
		fmt.Println("No reviews yet.")
		return
	}
	for _, r := range reviews {
		fmt.Printf("%s  %s: %s\n", color.HiBlackString(r.At.Local().Format(time.DateOnly)), r.UserName, r.Text)
	}
}

func (sh *shell) addReview() {
	id, ok1 := sh.ask("Book ID: ")
	text, ok2 := sh.ask("Review: ")
	if !ok1 || !ok2 {
		return
	}
	if _, err := sh.m.Reviews.Add(sh.ctx, id, sh.uid, text); err != nil {
		failed("review", err)
		return
	}
	ok("review posted")
}

// ------------------ Chat ------------------

func (sh *shell) friends() {
	ids, err := sh.m.Social.ListFriends(sh.ctx, sh.uid)
	if err != nil {
		failed("friends", err)
		return
	}
	if len(ids) == 0 {
		fmt.Println("No friends yet. Request a book or send a message to connect.")
		return
	}
	for _, id := range ids {
		name := id
		if u, err := sh.m.Users.Get(sh.ctx, id); err == nil {
			name = fmt.Sprintf("%s (%s)", u.Name, id)
		}
		fmt.Println(" •", name)
	}
}

func (sh *shell) chats() {
	chats, err := sh.m.Messages.ChatsFor(sh.ctx, sh.uid)
	if err != nil {
		failed("chats", err)
		return
	}
	if len(chats) == 0 {
		fmt.Println("No conversations.")
		return
	}
	for _, c := range chats {
		header("%s", strings.Join(c.Participants, " ↔ "))
		for _, msg := range c.Messages {
			fmt.Printf("  %s %s: %s\n", color.HiBlackString(msg.At.Local().Format("Jan 2 15:04")), msg.Sender, msg.Text)
		}
	}
}

func (sh *shell) sendMessage() {
	to, ok1 := sh.ask("To (user ID): ")
	text, ok2 := sh.ask("Message: ")
	if !ok1 || !ok2 {
		return
	}
	if _, err := sh.m.Messages.Send(sh.ctx, sh.uid, to, text); err != nil {
		failed("send message", err)
		return
	}
	ok("sent")
}

// ------------------ Notifications ------------------

func (sh *shell) notifications() {
	notes, err := sh.m.Notifications.List(sh.ctx, sh.uid)
	if err != nil {
		failed("notifications", err)
		return
	}
	if len(notes) == 0 {
		fmt.Println("No notifications.")
		return
	}
	for _, n := range notes {
		dot := " "
		if !n.Seen {
			dot = color.YellowString("•")
		}
		line := n.Message
		if n.BookID != "" {
			line += color.HiBlackString(" [" + n.BookID + "]")
		}
		fmt.Printf("%s %s %s\n", dot, color.HiBlackString(n.At.Local().Format("Jan 2 15:04")), line)
	}
}

// ------------------ Events ------------------

func (sh *shell) events() {
	cat, ok1 := sh.ask("Category (meetup/exchange/fair, empty for all): ")
	if !ok1 {
		return
	}
	events, err := sh.m.Events.List(sh.ctx, cat)
	if err != nil {
		failed("events", err)
		return
	}
	if len(events) == 0 {
		fmt.Println("No events.")
		return
	}
	fmt.Printf("%-18s %-32s %-10s %-12s %-8s %s\n", "ID", "Title", "Category", "Date", "Seats", "Host")
	fmt.Println(strings.Repeat("-", 100))
	for _, e := range events {
		seats := "open"
		if e.MaxAttendees > 0 {
			seats = fmt.Sprintf("%d/%d", len(e.Attendees), e.MaxAttendees)
		}
		fmt.Printf("%-18s %-32s %-10s %-12s %-8s %s\n",
			truncateString(e.ID, 18), truncateString(e.Title, 32), e.Category, e.Date, seats, e.Host)
	}
}

func (sh *shell) rsvp() {
	id, ok1 := sh.ask("Event ID: ")
	if !ok1 {
		return
	}
	e, err := sh.m.Events.RSVP(sh.ctx, id, market.Participant{ID: sh.uid, Name: sh.name})
	if err != nil {
		failed("rsvp", err)
		return
	}
	ok("you're on the list for %q, waiting for the host", e.Title)
}

func (sh *shell) comment() {
	id, ok1 := sh.ask("Event ID: ")
	text, ok2 := sh.ask("Comment: ")
	if !ok1 || !ok2 {
		return
	}
	if _, err := sh.m.Events.AddComment(sh.ctx, id, market.Participant{ID: sh.uid, Name: sh.name}, text); err != nil {
		failed("comment", err)
		return
	}
	ok("comment posted")
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
