package dispatcher

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

// fakePlatform records every call and fails the ones named in failOn.
type fakePlatform struct {
	mu      sync.Mutex
	members map[string]*Member
	failOn  map[string]error
	calls   []string
	reasons []string
	roles   map[string][]string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		members: make(map[string]*Member),
		failOn:  make(map[string]error),
		roles:   make(map[string][]string),
	}
}

func (f *fakePlatform) call(name, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	if reason != "" {
		f.reasons = append(f.reasons, reason)
	}
	return f.failOn[name]
}

func (f *fakePlatform) Ban(_ context.Context, _, _, reason string) error {
	return f.call("ban", reason)
}

func (f *fakePlatform) FetchMember(_ context.Context, _, userID string) (*Member, error) {
	if err := f.call("fetch", ""); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[userID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

func (f *fakePlatform) Kick(_ context.Context, _, _, reason string) error {
	return f.call("kick", reason)
}

func (f *fakePlatform) SetRoles(_ context.Context, _, userID string, roleIDs []string, reason string) error {
	if err := f.call("set_roles", reason); err != nil {
		return err
	}
	f.mu.Lock()
	f.roles[userID] = roleIDs
	f.mu.Unlock()
	return nil
}

func (f *fakePlatform) DeleteChannel(_ context.Context, _, reason string) error {
	return f.call("delete_channel", reason)
}

func (f *fakePlatform) DeleteRole(_ context.Context, _, _, reason string) error {
	return f.call("delete_role", reason)
}

func TestPunish_Ban(t *testing.T) {
	p := newFakePlatform()
	out := NewPunisher(p, nil).Punish(context.Background(), "g1", "a1", models.PolicyBan, "Mass ban detected")

	assert.True(t, out.OK)
	assert.Equal(t, models.OutcomeBanned, out.Label)
	assert.Equal(t, []string{"ban"}, p.calls)
	assert.Equal(t, []string{"[Antinuke] Mass ban detected"}, p.reasons)
}

func TestPunish_BanFailure(t *testing.T) {
	p := newFakePlatform()
	p.failOn["ban"] = errors.New("missing permissions")

	out := NewPunisher(p, nil).Punish(context.Background(), "g1", "a1", models.PolicyBan, "x")

	assert.False(t, out.OK)
	assert.Equal(t, models.OutcomeFailed, out.Label)
	assert.Contains(t, out.Reason, "missing permissions")
	assert.Len(t, p.calls, 1, "no retry")
}

func TestPunish_Kick(t *testing.T) {
	p := newFakePlatform()
	p.members["a1"] = &Member{ID: "a1", GuildID: "g1"}

	out := NewPunisher(p, nil).Punish(context.Background(), "g1", "a1", models.PolicyKick, "x")

	assert.Equal(t, models.OutcomeKicked, out.Label)
	assert.Equal(t, []string{"fetch", "kick"}, p.calls)
}

func TestPunish_KickAbsentMember(t *testing.T) {
	p := newFakePlatform()

	out := NewPunisher(p, nil).Punish(context.Background(), "g1", "gone", models.PolicyKick, "x")

	assert.Equal(t, models.OutcomeFailed, out.Label)
	assert.Equal(t, []string{"fetch"}, p.calls)
}

func TestPunish_StripRolesInOneCall(t *testing.T) {
	p := newFakePlatform()
	p.members["a1"] = &Member{ID: "a1", GuildID: "g1", RoleIDs: []string{"admin", "mod", "g1"}}

	out := NewPunisher(p, nil).Punish(context.Background(), "g1", "a1", models.PolicyStripRoles, "x")

	assert.True(t, out.OK)
	assert.Equal(t, models.OutcomeRolesRemoved, out.Label)
	assert.Equal(t, []string{"fetch", "set_roles"}, p.calls)
	require.Contains(t, p.roles, "a1")
	assert.Empty(t, p.roles["a1"])
}

func TestPunish_StripRolesAbsentMember(t *testing.T) {
	p := newFakePlatform()

	out := NewPunisher(p, nil).Punish(context.Background(), "g1", "gone", models.PolicyStripRoles, "x")

	assert.Equal(t, models.OutcomeFailed, out.Label)
	assert.Contains(t, out.Reason, ErrMemberNotFound.Error())
	assert.NotContains(t, p.calls, "set_roles")
}

func TestPunish_StripRolesEditFailure(t *testing.T) {
	p := newFakePlatform()
	p.members["a1"] = &Member{ID: "a1", GuildID: "g1", RoleIDs: []string{"admin"}}
	p.failOn["set_roles"] = errors.New("role hierarchy")

	out := NewPunisher(p, nil).Punish(context.Background(), "g1", "a1", models.PolicyStripRoles, "x")

	assert.False(t, out.OK)
	assert.Equal(t, "failed (role hierarchy)", out.String())
}

func TestPunish_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := newFakePlatform()
	p.members["a1"] = &Member{ID: "a1", GuildID: "g1"}
	pun := NewPunisher(p, metrics.NewRegistry(reg))

	pun.Punish(context.Background(), "g1", "a1", models.PolicyKick, "x")
	pun.Punish(context.Background(), "g1", "missing", models.PolicyKick, "x")

	expected := `
# HELP antinuke_punishments_total Punishment attempts by policy and outcome
# TYPE antinuke_punishments_total counter
antinuke_punishments_total{outcome="failed",policy="KICK"} 1
antinuke_punishments_total{outcome="kicked",policy="KICK"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "antinuke_punishments_total"))
}
