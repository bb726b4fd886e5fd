package mail_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alnah/go-mailbuild/internal/mail"
)

func resendServer(t *testing.T, status int, got *map[string]any) *url.URL {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/emails", r.URL.Path)
		assert.Equal(t, "Bearer re_test", r.Header.Get("Authorization"))
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 400 {
			_, _ = w.Write([]byte(`{"statusCode": 422, "name": "validation_error", "message": "bad from"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id": "49a3999c-0ce1-4ea6-ab68-afcd6dc2e794"}`))
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	return u
}

func TestResendSender_Send(t *testing.T) {
	t.Parallel()

	t.Run("posts email", func(t *testing.T) {
		t.Parallel()

		var body map[string]any
		endpoint := resendServer(t, http.StatusOK, &body)
		s := mail.NewResendSender("re_test", mail.WithResendEndpoint(endpoint))

		e := validEmail()
		e.Text = "Hello"
		require.NoError(t, s.Send(context.Background(), e))

		assert.Equal(t, "Acme <news@acme.test>", body["from"])
		assert.Equal(t, []any{"jane@example.test"}, body["to"])
		assert.Equal(t, "Welcome", body["subject"])
		assert.Equal(t, "<p>Hello</p>", body["html"])
		assert.Equal(t, "Hello", body["text"])
	})

	t.Run("api error", func(t *testing.T) {
		t.Parallel()

		endpoint := resendServer(t, http.StatusUnprocessableEntity, nil)
		err := mail.NewResendSender("re_test", mail.WithResendEndpoint(endpoint)).Send(context.Background(), validEmail())
		require.ErrorIs(t, err, mail.ErrSendFailed)
	})

	t.Run("invalid email", func(t *testing.T) {
		t.Parallel()

		err := mail.NewResendSender("re_test").Send(context.Background(), &mail.Email{From: "a@b.test"})
		require.ErrorIs(t, err, mail.ErrNoSubject)
	})
}
