package cli

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/guessgame/internal/agent/agenttest"
	"github.com/mcoot/guessgame/internal/factory"
	"github.com/mcoot/guessgame/internal/identity"
	"github.com/mcoot/guessgame/internal/model"
)

type TerminalSuite struct {
	suite.Suite
	ctx    context.Context
	app    *factory.TestApp
	stdout bytes.Buffer
	stderr bytes.Buffer
	term   *Terminal

	callbackAddr string
	approve      func(authURL string) (url.Values, error)
}

func TestTerminalSuite(t *testing.T) {
	suite.Run(t, new(TerminalSuite))
}

func (s *TerminalSuite) SetupTest() {
	s.ctx = context.Background()
	s.app = factory.NewTestApp(s.T())
	s.stdout.Reset()
	s.stderr.Reset()
	s.approve = s.app.Provider.Approve

	listen := func() (net.Listener, error) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err == nil {
			s.callbackAddr = ln.Addr().String()
		}
		return ln, err
	}
	open := func(authURL string) error {
		q, err := s.approve(authURL)
		if err != nil {
			return err
		}
		resp, err := http.Get("http://" + s.callbackAddr + identity.CallbackPath + "?" + q.Encode())
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}

	out := NewOutput("text", &s.stdout, &s.stderr)
	s.term = NewTerminal(s.app.IdentityManager, s.app.GameController, "terminal", out, listen, open)
}

func (s *TerminalSuite) exec(line string) error {
	quit, err := s.term.Exec(s.ctx, line)
	s.False(quit)
	return err
}

func (s *TerminalSuite) login() {
	s.Require().NoError(s.exec("login"))
	s.Require().Contains(s.stdout.String(), "Welcome, principal-alice!")
	s.stdout.Reset()
}

func (s *TerminalSuite) TestInitShowsLoginGate() {
	st := s.term.Init(s.ctx)

	s.False(st.Authenticated)
	s.Contains(s.stdout.String(), "Welcome to Number Guessing Game!")
	s.Contains(s.stdout.String(), "Please login to play")
}

func (s *TerminalSuite) TestInitRestoresLogin() {
	s.Require().NoError(s.app.Login(s.ctx, "terminal"))
	s.app.Sessions.Delete("terminal")

	st := s.term.Init(s.ctx)

	s.True(st.Authenticated)
	s.Contains(s.stdout.String(), "Logged in as principal-alice")
}

func (s *TerminalSuite) TestLoginAndPlay() {
	s.login()
	s.Equal(model.Principal("principal-alice"), s.term.manager.State("terminal").Principal())

	s.Require().NoError(s.exec("start"))
	s.Contains(s.stdout.String(), agenttest.DefaultStartReply)
	s.Contains(s.stdout.String(), "Game in Progress")

	s.Require().NoError(s.exec("guess 42"))
	s.Contains(s.stdout.String(), agenttest.DefaultGuessReply)

	s.Require().NoError(s.exec("17"))

	calls := s.app.Replica.Calls()
	s.Require().Len(calls, 3)
	s.Equal("startGame", calls[0].Method)
	s.Equal("guess", calls[1].Method)
	s.Require().NotNil(calls[1].Arg)
	s.Equal(42.0, *calls[1].Arg)
	s.Require().NotNil(calls[2].Arg)
	s.Equal(17.0, *calls[2].Arg)
}

func (s *TerminalSuite) TestWinningGuessEndsGame() {
	s.login()
	s.app.Replica.QueueReply("guess", "Congratulations! You guessed the number!")

	s.Require().NoError(s.exec("start"))
	s.Require().NoError(s.exec("50"))

	s.Contains(s.stdout.String(), "[*] Congratulations! You guessed the number!")
	s.False(s.term.manager.State("terminal").Game.Active)
}

func (s *TerminalSuite) TestInvalidGuessNotSent() {
	s.login()
	s.Require().NoError(s.exec("start"))

	s.Require().NoError(s.exec("guess abc"))

	s.Contains(s.stdout.String(), "[!] Please enter a valid number")
	s.Len(s.app.Replica.Calls(), 1)
}

func (s *TerminalSuite) TestRemoteErrorShown() {
	s.login()
	s.app.Replica.QueueReject("startGame", "canister_error", "game service unavailable")

	s.Require().NoError(s.exec("start"))

	s.Contains(s.stdout.String(), "[!] Error starting game: game service unavailable")
}

func (s *TerminalSuite) TestActionsRequireLogin() {
	s.term.Init(s.ctx)

	s.ErrorIs(s.exec("start"), errLoginRequired)
	s.ErrorIs(s.exec("guess 5"), errLoginRequired)
	s.Empty(s.app.Replica.Calls())
}

func (s *TerminalSuite) TestLoginDenied() {
	s.approve = s.app.Provider.Deny

	s.Require().NoError(s.exec("login"))

	s.Contains(s.stdout.String(), "Login failed: ")
	s.False(s.term.manager.State("terminal").Authenticated)
}

func (s *TerminalSuite) TestLoginWhenAlreadyLoggedIn() {
	s.login()

	s.Require().NoError(s.exec("login"))
	s.Contains(s.stdout.String(), "Already logged in")
}

func (s *TerminalSuite) TestLogout() {
	s.login()
	s.Require().NoError(s.exec("start"))

	s.Require().NoError(s.exec("logout"))

	s.Contains(s.stdout.String(), "You have been logged out")
	st := s.term.manager.State("terminal")
	s.False(st.Authenticated)
	s.False(st.Game.Active)
}

func (s *TerminalSuite) TestUnknownCommand() {
	err := s.exec("dance")
	s.Require().Error(err)
	s.Contains(err.Error(), `unknown command "dance"`)
}

func (s *TerminalSuite) TestBlankLineIgnored() {
	s.NoError(s.exec("   "))
	s.Empty(s.stdout.String())
}

func (s *TerminalSuite) TestQuit() {
	quit, err := s.term.Exec(s.ctx, "quit")
	s.NoError(err)
	s.True(quit)
}

func (s *TerminalSuite) TestRunUntilQuit() {
	s.Require().NoError(s.app.Login(s.ctx, "terminal"))

	err := s.term.Run(s.ctx, strings.NewReader("start\nnonsense\nquit\nstart\n"))

	s.NoError(err)
	s.Contains(s.stderr.String(), "unknown command")
	s.Len(s.app.Replica.Calls(), 1, "commands after quit are not run")
}

func (s *TerminalSuite) TestLineReaderStopsWhenRunReturns() {
	ctx, cancel := context.WithCancel(s.ctx)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		scanLines(ctx, strings.NewReader("quit\nstart\nguess 5\n"), lines, scanErr)
		close(done)
	}()

	s.Equal("quit", <-lines)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Fail("line reader still blocked after cancel")
	}
	s.Empty(scanErr)
}

func (s *TerminalSuite) TestLineReaderReportsEOF() {
	lines := make(chan string, 2)
	scanErr := make(chan error, 1)

	scanLines(s.ctx, strings.NewReader("help\nquit"), lines, scanErr)

	s.Equal("help", <-lines)
	s.Equal("quit", <-lines)
	s.NoError(<-scanErr)
}

func (s *TerminalSuite) TestRunStopsAtEOF() {
	err := s.term.Run(s.ctx, strings.NewReader("help\n"))

	s.NoError(err)
	s.Contains(s.stdout.String(), "guess <n>")
}

func (s *TerminalSuite) TestRootKeyFailureReported() {
	s.Require().NoError(s.app.Login(s.ctx, "terminal"))
	s.app.Sessions.Delete("terminal")
	s.app.Replica.FailStatus()

	st := s.term.Init(s.ctx)

	s.False(st.Authenticated)
	s.Contains(s.stdout.String(), "Could not connect to the game service: ")
	s.ErrorIs(s.term.render(s.app.GameController.StartGame(s.ctx, "terminal")), errLoginRequired)
	s.Equal(model.Principal(""), st.Principal())
}
