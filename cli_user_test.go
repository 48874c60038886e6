package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"catalogadmin/model"
	"catalogadmin/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPassword(t *testing.T) {
	p, err := readPassword(strings.NewReader("  Secret#123\n"))
	require.NoError(t, err)
	assert.Equal(t, "Secret#123", p)

	_, err = readPassword(strings.NewReader("\n"))
	assert.Error(t, err)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"serve"},
		{"user", "create"},
		{"user", "list"},
		{"user", "set-role"},
		{"user", "set-active"},
		{"user", "set-password"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestWriteUserLine(t *testing.T) {
	var out bytes.Buffer
	writeUserLine(&out, &model.User{UserID: "u1", Email: "a@b.com", Role: "editor", CreatedAt: time.Now()})
	assert.Equal(t, "u1\ta@b.com\teditor\tdisabled\n", out.String())
}

func TestSetActiveRejectsBadFlag(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"user", "set-active", "a@b.com", "maybe"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid active flag")
}

func TestSetPasswordChecksInputBeforeConnecting(t *testing.T) {
	run := func(stdin string, args ...string) error {
		root := newRootCmd()
		root.SetArgs(args)
		root.SetIn(strings.NewReader(stdin))
		root.SetOut(&bytes.Buffer{})
		return root.Execute()
	}

	err := run("Nova#Senha1\n", "user", "set-password", "a@b.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--password-stdin")

	err = run("fraca\n", "user", "set-password", "a@b.com", "--password-stdin")
	assert.ErrorIs(t, err, services.ErrWeakPassword)

	err = run("\n", "user", "set-password", "a@b.com", "--password-stdin")
	assert.Error(t, err)
}
