package scrub_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xinchaobeta/semantic-release/internal/scrub"
)

func TestSecrets(t *testing.T) {
	t.Parallel()

	t.Run("should collect values of secret-looking keys", func(t *testing.T) {
		t.Parallel()

		// given
		environ := []string{
			"GH_TOKEN=abc123",
			"HOME=/root",
			"DB_PASSWORD=hunter2",
			"MY_SECRET=topsecret",
		}

		// when
		secrets := scrub.Secrets(environ)

		// then
		assert.Contains(t, secrets, "abc123")
		assert.Contains(t, secrets, "hunter2")
		assert.Contains(t, secrets, "topsecret")
		assert.NotContains(t, secrets, "/root")
	})

	t.Run("should ignore secret-looking keys with blank values", func(t *testing.T) {
		t.Parallel()

		// given
		environ := []string{"GH_TOKEN=   "}

		// when
		secrets := scrub.Secrets(environ)

		// then
		assert.Empty(t, secrets)
	})

	t.Run("should ignore malformed environment entries", func(t *testing.T) {
		t.Parallel()

		// when
		secrets := scrub.Secrets([]string{"NOEQUALSIGN"})

		// then
		assert.Empty(t, secrets)
	})
}

func TestWriter(t *testing.T) {
	t.Parallel()

	t.Run("should replace every tracked secret with [secure]", func(t *testing.T) {
		t.Parallel()

		// given
		var buf bytes.Buffer
		w := scrub.NewWriter(&buf, []string{"abc123"})

		// when
		n, err := w.Write([]byte("authorization: token abc123 worked"))

		// then
		assert.NoError(t, err)
		assert.Equal(t, len("authorization: token abc123 worked"), n)
		assert.Equal(t, "authorization: token [secure] worked", buf.String())
	})

	t.Run("should pass through untouched text when there is nothing to scrub", func(t *testing.T) {
		t.Parallel()

		// given
		var buf bytes.Buffer
		w := scrub.NewWriter(&buf, nil)

		// when
		_, err := w.Write([]byte("plain log line"))

		// then
		assert.NoError(t, err)
		assert.Equal(t, "plain log line", buf.String())
	})
}
