package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	dir := t.TempDir()
	credPath := filepath.Join(dir, "users.txt")

	content := "gen " + hash + "\n"
	require.NoError(t, os.WriteFile(credPath, []byte(content), 0o600))

	creds, err := LoadCredentials(credPath)
	require.NoError(t, err)

	require.True(t, creds.Verify("gen", "correct horse battery staple"))
	require.False(t, creds.Verify("gen", "wrong password"))
	require.False(t, creds.Verify("nobody", "correct horse battery staple"))
}

func TestHashesAreSalted(t *testing.T) {
	t.Parallel()

	first, err := HashPassword("same password")
	require.NoError(t, err)

	second, err := HashPassword("same password")
	require.NoError(t, err)

	require.NotEqual(t, first, second, "two hashes of one password must differ by salt")
}

func TestLoadCredentialsErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadCredentials(filepath.Join(dir, "absent.txt"))
		require.Error(t, err)
	})

	t.Run("malformed line", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(dir, "bad.txt")
		require.NoError(t, os.WriteFile(path, []byte("just-a-username\n"), 0o600))

		_, err := LoadCredentials(path)
		require.ErrorIs(t, err, ErrBadCredentialLine)
	})
}

func TestVerifyMalformedHashFails(t *testing.T) {
	t.Parallel()

	creds := &Credentials{users: map[string]string{
		"gen": "md5$not$areal$hash",
	}}

	require.False(t, creds.Verify("gen", "anything"))
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	sessions := NewSessions(time.Hour)

	current := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	sessions.SetNow(func() time.Time { return current })

	session := sessions.Create("gen")
	require.NotEmpty(t, session.Token)
	require.Equal(t, "gen", session.Username)

	got, ok := sessions.Lookup(session.Token)
	require.True(t, ok)
	require.Equal(t, session, got)

	// Advance past the TTL: the session is gone and stays gone.
	current = current.Add(2 * time.Hour)

	_, ok = sessions.Lookup(session.Token)
	require.False(t, ok)

	require.False(t, sessions.Delete(session.Token))
}

func TestSessionDelete(t *testing.T) {
	t.Parallel()

	sessions := NewSessions(0)
	session := sessions.Create("gen")

	require.True(t, sessions.Delete(session.Token))

	_, ok := sessions.Lookup(session.Token)
	require.False(t, ok)
}
