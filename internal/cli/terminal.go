package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/mcoot/guessgame/internal/identity"
	"github.com/mcoot/guessgame/internal/model"
	"github.com/mcoot/guessgame/internal/services/game"
	"github.com/mcoot/guessgame/internal/session"
)

const (
	msgServiceUnavailable = "Could not connect to the game service: "
	msgLoginFailed        = "Login failed: "
	msgLoggedOut          = "You have been logged out"
)

var errLoginRequired = errors.New("please login to play")

const helpText = `Commands:
  login        log in through the identity provider
  start        start a new game
  guess <n>    submit a guess (or just type the number)
  logout       log out
  quit         exit`

// Terminal is the interactive text frontend for one session
type Terminal struct {
	manager    *identity.Manager
	controller *game.Controller
	sid        model.SessionID
	out        *Output

	// listen opens the loopback listener the provider redirects back to
	listen func() (net.Listener, error)
	// open hands the login URL to the user
	open         func(authURL string) error
	loginTimeout time.Duration
}

// NewTerminal creates a terminal frontend for sid
func NewTerminal(manager *identity.Manager, controller *game.Controller, sid model.SessionID, out *Output, listen func() (net.Listener, error), open func(string) error) *Terminal {
	return &Terminal{
		manager:      manager,
		controller:   controller,
		sid:          sid,
		out:          out,
		listen:       listen,
		open:         open,
		loginTimeout: 5 * time.Minute,
	}
}

// Init restores a previous login for the session and shows the state
func (t *Terminal) Init(ctx context.Context) session.State {
	st, err := t.manager.Initialize(ctx, t.sid)
	if err != nil {
		t.out.PrintMessage(msgServiceUnavailable + err.Error())
	}
	t.out.Print(st)
	return st
}

// Run reads commands from in until quit, EOF or ctx is done
func (t *Terminal) Run(ctx context.Context, in io.Reader) error {
	t.Init(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go scanLines(ctx, in, lines, scanErr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			return err
		case line := <-lines:
			quit, err := t.Exec(ctx, line)
			if err != nil {
				t.out.PrintError(err)
			}
			if quit {
				return nil
			}
		}
	}
}

// Exec runs one command line and reports whether the terminal should exit
func (t *Terminal) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true, nil
	case "help":
		t.out.PrintMessage(helpText)
		return false, nil
	case "login":
		return false, t.login(ctx)
	case "logout":
		st, err := t.manager.Logout(ctx, t.sid)
		t.out.PrintMessage(msgLoggedOut)
		t.out.Print(st)
		return false, err
	case "start":
		return false, t.render(t.controller.StartGame(ctx, t.sid))
	case "guess":
		raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
		return false, t.render(t.controller.SubmitGuess(ctx, t.sid, raw))
	}

	if len(fields) == 1 {
		if _, err := game.ParseGuess(fields[0]); err == nil {
			return false, t.render(t.controller.SubmitGuess(ctx, t.sid, fields[0]))
		}
	}
	return false, fmt.Errorf("unknown command %q (try 'help')", fields[0])
}

func (t *Terminal) render(st session.State, err error) error {
	if errors.Is(err, model.ErrNotAuthenticated) {
		return errLoginRequired
	}
	if err != nil {
		return err
	}
	t.out.Print(st)
	return nil
}

// scanLines feeds lines from in until EOF or ctx is done
func scanLines(ctx context.Context, in io.Reader, lines chan<- string, scanErr chan<- error) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	scanErr <- scanner.Err()
}

func (t *Terminal) login(ctx context.Context) error {
	if t.manager.State(t.sid).Authenticated {
		t.out.PrintMessage("Already logged in")
		return nil
	}

	ln, err := t.listen()
	if err != nil {
		return fmt.Errorf("listen for login callback: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.loginTimeout)
	defer cancel()

	st, err := t.manager.AwaitLogin(ctx, t.sid, ln, t.open)
	switch {
	case errors.Is(err, model.ErrRootKeyUnavailable):
		t.out.PrintMessage(msgServiceUnavailable + err.Error())
	case err != nil:
		t.out.PrintMessage(msgLoginFailed + err.Error())
	default:
		t.out.PrintMessage("Welcome, " + string(st.Principal()) + "!")
	}
	t.out.Print(st)
	return nil
}
