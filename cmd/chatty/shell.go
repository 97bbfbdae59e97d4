package main

import (
	"bufio"
	"chatty/domain"
	"chatty/infrastructure/media"
	"chatty/infrastructure/rest"
	"chatty/moderation"
	"chatty/observability"
	"chatty/services"
	"chatty/sink"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/gookit/color"
)

// shell is the line-oriented front end of the client.
type shell struct {
	log           *slog.Logger
	out           io.Writer
	colours       bool
	api           *rest.Client
	sessions      *services.SessionService
	conversations *services.ConversationService
	themes        *services.ThemeService
	toasts        *sink.ToastSink
	monitor       *observability.Monitor
	muted         *moderation.MuteFilter
}

type command struct {
	usage   string
	help    string
	minArgs int
	run     func(ctx context.Context, args []string) error
}

var errQuit = errors.New("quit")

func (s *shell) commands() map[string]command {
	return map[string]command{
		"signup":  {"signup <email> <password> <full name>", "create an account", 3, s.signUp},
		"login":   {"login <email> <password>", "log in", 2, s.logIn},
		"logout":  {"logout", "log out", 0, s.logOut},
		"whoami":  {"whoami", "show the current user", 0, s.whoAmI},
		"avatar":  {"avatar <image path>", "change the profile picture", 1, s.avatar},
		"users":   {"users", "list contacts", 0, s.users},
		"online":  {"online", "list online users", 0, s.online},
		"open":    {"open <user id|email|name>", "open a conversation", 1, s.open},
		"send":    {"send <text>", "send a message to the open conversation", 1, s.send},
		"image":   {"image <path> [caption]", "send an image to the open conversation", 1, s.image},
		"history": {"history", "show the open conversation", 0, s.history},
		"theme":   {"theme [name]", "show or change the theme", 0, s.theme},
		"themes":  {"themes", "list known themes", 0, s.listThemes},
		"toasts":  {"toasts", "show the last notifications", 0, s.recentToasts},
		"stats":   {"stats", "show client statistics", 0, s.stats},
		"help":    {"help", "show this help", 0, s.help},
		"quit":    {"quit", "leave", 0, func(context.Context, []string) error { return errQuit }},
	}
}

// Run reads commands from in until quit, end of input or ctx is done.
func (s *shell) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.banner()
	for {
		s.prompt()
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := s.exec(ctx, line); err == errQuit {
				return nil
			}
		}
	}
}

// exec runs one command line. Command errors are printed, not returned,
// except errQuit.
func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	cmd, ok := s.commands()[name]
	if !ok {
		s.printf("unknown command %q, try help\n", name)
		return nil
	}
	if len(args) < cmd.minArgs {
		s.printf("usage: %s\n", cmd.usage)
		return nil
	}
	err := cmd.run(ctx, args)
	if err != nil && err != errQuit {
		s.printf("%s\n", s.paint(color.FgRed, "error: "+err.Error()))
	}
	return err
}

func (s *shell) signUp(ctx context.Context, args []string) error {
	s.sessions.SignUp(ctx, domain.SignUpRequest{
		Email:    args[0],
		Password: args[1],
		FullName: strings.Join(args[2:], " "),
	})
	return nil
}

func (s *shell) logIn(ctx context.Context, args []string) error {
	s.sessions.LogIn(ctx, domain.LoginRequest{Email: args[0], Password: args[1]})
	return nil
}

func (s *shell) logOut(ctx context.Context, _ []string) error {
	s.conversations.UnsubscribeFromInbound()
	s.sessions.LogOut(ctx)
	return nil
}

func (s *shell) avatar(ctx context.Context, args []string) error {
	pic, err := media.EncodeImage(strings.Join(args, " "))
	if err != nil {
		return err
	}
	s.sessions.UpdateProfile(ctx, domain.ProfileUpdate{ProfilePic: pic})
	return nil
}

func (s *shell) users(ctx context.Context, _ []string) error {
	s.conversations.ListContacts(ctx)
	s.renderContacts(s.conversations.State().Contacts)
	return nil
}

func (s *shell) online(context.Context, []string) error {
	ids := s.sessions.State().OnlineUserIDs
	if len(ids) == 0 {
		s.printf("nobody is online\n")
		return nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, s.displayName(id))
	}
	sort.Strings(names)
	for _, name := range names {
		s.printf("%s %s\n", s.paint(color.FgGreen, "●"), name)
	}
	return nil
}

func (s *shell) open(ctx context.Context, args []string) error {
	contact, err := s.findContact(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	s.conversations.OpenConversation(ctx, contact)
	return s.history(ctx, nil)
}

func (s *shell) send(ctx context.Context, args []string) error {
	s.conversations.SendMessage(ctx, domain.MessagePayload{Text: strings.Join(args, " ")})
	return nil
}

func (s *shell) image(ctx context.Context, args []string) error {
	pic, err := media.EncodeImage(args[0])
	if err != nil {
		return err
	}
	s.conversations.SendMessage(ctx, domain.MessagePayload{Text: strings.Join(args[1:], " "), Image: pic})
	return nil
}

func (s *shell) history(context.Context, []string) error {
	state := s.conversations.State()
	if state.SelectedContact == nil {
		s.printf("no conversation open\n")
		return nil
	}
	s.renderHistory(state.Messages)
	return nil
}

func (s *shell) theme(_ context.Context, args []string) error {
	if len(args) == 0 {
		s.printf("%s\n", s.themes.Theme())
		return nil
	}
	theme := domain.Theme(args[0])
	if err := s.themes.SetTheme(theme); err != nil {
		return err
	}
	if !theme.IsKnown() {
		s.printf("theme %q saved, but it is not a known theme\n", theme)
	}
	return nil
}

func (s *shell) listThemes(context.Context, []string) error {
	current := s.themes.Theme()
	for _, theme := range domain.Themes {
		marker := " "
		if theme == current {
			marker = "*"
		}
		s.printf("%s %s\n", marker, theme)
	}
	return nil
}

func (s *shell) recentToasts(context.Context, []string) error {
	s.renderToasts(s.toasts.Recent())
	return nil
}

func (s *shell) stats(ctx context.Context, _ []string) error {
	s.renderStats(s.monitor.Sample(ctx))
	return nil
}

func (s *shell) help(context.Context, []string) error {
	cmds := s.commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.printf("  %-36s %s\n", cmds[name].usage, cmds[name].help)
	}
	return nil
}

// findContact matches on id, then email, then full name, case-insensitively
// for the last two. Contacts are fetched when none are known yet.
func (s *shell) findContact(ctx context.Context, query string) (domain.User, error) {
	if len(s.conversations.State().Contacts) == 0 {
		s.conversations.ListContacts(ctx)
	}
	contacts := s.conversations.State().Contacts
	for _, match := range []func(domain.User) bool{
		func(u domain.User) bool { return u.ID == query },
		func(u domain.User) bool { return strings.EqualFold(u.Email, query) },
		func(u domain.User) bool { return strings.EqualFold(u.FullName, query) },
	} {
		for _, u := range contacts {
			if match(u) {
				return u, nil
			}
		}
	}
	return domain.User{}, fmt.Errorf("no contact matches %q", query)
}

func (s *shell) selfID() string {
	if user := s.sessions.State().CurrentUser; user != nil {
		return user.ID
	}
	return ""
}

func (s *shell) displayName(userID string) string {
	if userID == s.selfID() {
		return "you"
	}
	for _, u := range s.conversations.State().Contacts {
		if u.ID == userID && u.FullName != "" {
			return u.FullName
		}
	}
	return userID
}

func (s *shell) banner() {
	s.printf("%s (theme %s), type help for commands\n", s.paint(color.FgCyan, "chatty"), s.themes.Theme())
}

func (s *shell) prompt() {
	name := "guest"
	if user := s.sessions.State().CurrentUser; user != nil {
		name = user.FullName
	}
	if contact := s.conversations.State().SelectedContact; contact != nil {
		name += " → " + contact.FullName
	}
	s.printf("%s ", s.paint(color.FgMagenta, name+">"))
}

func (s *shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *shell) paint(c color.Color, text string) string {
	if !s.colours {
		return text
	}
	return c.Render(text)
}
