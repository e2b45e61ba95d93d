package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drpramila84/600-commanddiscord/internal/database"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

func newOps(t *testing.T) (guildOps, *bytes.Buffer) {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "antinuke.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var out bytes.Buffer
	return guildOps{db: db, out: &out}, &out
}

func TestGuildOps_EnableAndPunishment(t *testing.T) {
	ctx := context.Background()
	g, out := newOps(t)

	require.NoError(t, g.setEnabled(ctx, "g1", true))
	require.NoError(t, g.setPunishment(ctx, "g1", "ban"))
	assert.Contains(t, out.String(), "Protection enabled for g1")

	s, err := g.db.Load(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.Equal(t, models.PolicyBan, s.Punishment)
}

func TestGuildOps_RejectsUnknownPunishment(t *testing.T) {
	g, _ := newOps(t)
	err := g.setPunishment(context.Background(), "g1", "mute")
	assert.ErrorContains(t, err, "unknown punishment")
}

func TestGuildOps_Whitelist(t *testing.T) {
	ctx := context.Background()
	g, out := newOps(t)

	require.NoError(t, g.whitelistAdd(ctx, "g1", "u1"))
	require.NoError(t, g.whitelistAdd(ctx, "g1", "u1"))
	assert.Contains(t, out.String(), "already whitelisted")

	s, err := g.db.Load(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, s.Whitelist)

	require.NoError(t, g.whitelistRemove(ctx, "g1", "u1"))
	require.NoError(t, g.whitelistRemove(ctx, "g1", "u1"))
	assert.Contains(t, out.String(), "is not whitelisted")
}

func TestGuildOps_ShowAndList(t *testing.T) {
	ctx := context.Background()
	g, out := newOps(t)

	require.NoError(t, g.setLogChannel(ctx, "g1", "c9"))
	out.Reset()

	require.NoError(t, g.show(ctx, "g1"))
	text := out.String()
	assert.Contains(t, text, "c9")
	assert.Contains(t, text, "channel_delete")
	assert.Contains(t, text, "REMOVE_ROLES")

	out.Reset()
	require.NoError(t, g.list(ctx))
	assert.Equal(t, "g1\n", out.String())
}

func TestGuildCommand_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	dbPath := filepath.Join(dir, "antinuke.db")
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  path: "+dbPath+"\n"), 0o600))

	run := func(args ...string) string {
		var out bytes.Buffer
		root := newRootCmd()
		root.SetOut(&out)
		root.SetArgs(append([]string{"--config", cfgPath}, args...))
		require.NoError(t, root.Execute())
		return out.String()
	}

	assert.Contains(t, run("guild", "enable", "g7"), "Protection enabled for g7")
	assert.Contains(t, run("guild", "whitelist", "add", "g7", "u2"), "Whitelisted u2 in g7")
	assert.Contains(t, run("guild", "show", "g7"), "u2")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "antinuke dev")
}
