package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCmd_LoginShowLogout(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), "ws://127.0.0.1:3001/ws")

	out, err := execute(t, "--config", path, "session", "login", "tok-abcdef", "--user", `{"id":"u1"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "session saved")

	out, err = execute(t, "--config", path, "session", "show")
	require.NoError(t, err)
	var view sessionView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.True(t, view.LoggedIn)
	assert.Equal(t, "****cdef", view.Token)
	assert.JSONEq(t, `{"id":"u1"}`, string(view.User))

	out, err = execute(t, "--config", path, "session", "show", "--reveal")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "tok-abcdef", view.Token)

	_, err = execute(t, "--config", path, "session", "logout")
	require.NoError(t, err)

	out, err = execute(t, "--config", path, "session", "show")
	require.NoError(t, err)
	view = sessionView{}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.False(t, view.LoggedIn)
	assert.Empty(t, view.User)
}

func TestSessionCmd_RejectsInvalidUser(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), "ws://127.0.0.1:3001/ws")

	_, err := execute(t, "--config", path, "session", "login", "tok", "--user", "{")
	require.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "****", maskToken("abc"))
	assert.Equal(t, "****", maskToken("abcd"))
	assert.Equal(t, "****bcde", maskToken("abcde"))
}
