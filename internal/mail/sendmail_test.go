package mail_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-mailbuild/internal/mail"
	"github.com/alnah/go-mailbuild/internal/process"
)

type fakeRunner struct {
	mu     sync.Mutex
	calls  []process.Command
	stdin  []string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, cmd process.Command) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if cmd.Stdin != nil {
		b, _ := io.ReadAll(cmd.Stdin)
		f.stdin = append(f.stdin, string(b))
	}
	return "", f.stderr, f.err
}

func TestSendmailSender_Send(t *testing.T) {
	t.Parallel()

	t.Run("pipes message", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{}
		s := mail.NewSendmailSender("/usr/sbin/sendmail", []string{"-oi"}, runner)

		e := validEmail()
		e.To = []string{`"Jane" <jane@example.test>`, "bob@example.test"}
		require.NoError(t, s.Send(context.Background(), e))

		require.Len(t, runner.calls, 1)
		cmd := runner.calls[0]
		assert.Equal(t, "/usr/sbin/sendmail", cmd.Name)
		assert.Equal(t, []string{"-oi", "-i", "-f", "news@acme.test", "--", "jane@example.test", "bob@example.test"}, cmd.Args)
		require.Len(t, runner.stdin, 1)
		assert.Contains(t, runner.stdin[0], "Subject: Welcome\r\n")
	})

	t.Run("failure includes stderr", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{stderr: "relay denied\n", err: errors.New("exit status 75")}
		err := mail.NewSendmailSender("sendmail", nil, runner).Send(context.Background(), validEmail())
		require.ErrorIs(t, err, mail.ErrSendFailed)
		assert.Contains(t, err.Error(), "relay denied")
	})

	t.Run("invalid email never runs", func(t *testing.T) {
		t.Parallel()

		runner := &fakeRunner{}
		err := mail.NewSendmailSender("sendmail", nil, runner).Send(context.Background(), &mail.Email{})
		require.ErrorIs(t, err, mail.ErrNoRecipient)
		assert.Empty(t, runner.calls)
	})
}

func TestSendmailSender_StdinIsMessage(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	e := validEmail()
	e.Text = "Hello"
	require.NoError(t, mail.NewSendmailSender("sendmail", nil, runner).Send(context.Background(), e))
	assert.True(t, strings.Contains(runner.stdin[0], "multipart/alternative"))
}
