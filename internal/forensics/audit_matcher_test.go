package forensics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

type fakeSource struct {
	entry   *AuditEntry
	err     error
	calls   int
	actions []discordgo.AuditLogAction
}

func (f *fakeSource) FetchLatest(_ context.Context, _ string, action discordgo.AuditLogAction) (*AuditEntry, error) {
	f.calls++
	f.actions = append(f.actions, action)
	return f.entry, f.err
}

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func TestAttributor_FreshEntryReturnsExecutor(t *testing.T) {
	src := &fakeSource{entry: &AuditEntry{
		ExecutorID:  "executor",
		ExecutorTag: "nuker",
		CreatedAt:   now.Add(-1 * time.Second),
	}}
	a := NewAttributor(src, 5*time.Second, clock, nil)

	actor := a.Attribute(context.Background(), "g1", models.CategoryBan)
	require.NotNil(t, actor)
	assert.Equal(t, "executor", actor.ID, "must credit the executor, not the banned user")
	assert.Equal(t, "nuker", actor.Tag)
	assert.Equal(t, []discordgo.AuditLogAction{discordgo.AuditLogActionMemberBanAdd}, src.actions)
}

func TestAttributor_StaleEntryDropped(t *testing.T) {
	src := &fakeSource{entry: &AuditEntry{ExecutorID: "executor", CreatedAt: now.Add(-6 * time.Second)}}
	a := NewAttributor(src, 5*time.Second, clock, nil)

	assert.Nil(t, a.Attribute(context.Background(), "g1", models.CategoryChannelDelete))
}

func TestAttributor_BoundIsExclusive(t *testing.T) {
	src := &fakeSource{entry: &AuditEntry{ExecutorID: "executor", CreatedAt: now.Add(-5 * time.Second)}}
	a := NewAttributor(src, 5*time.Second, clock, nil)

	assert.Nil(t, a.Attribute(context.Background(), "g1", models.CategoryKick))
}

func TestAttributor_FetchErrorAndEmpty(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)

	failing := NewAttributor(&fakeSource{err: errors.New("503")}, 5*time.Second, clock, m)
	assert.Nil(t, failing.Attribute(context.Background(), "g1", models.CategoryRoleDelete))

	empty := NewAttributor(&fakeSource{}, 5*time.Second, clock, m)
	assert.Nil(t, empty.Attribute(context.Background(), "g1", models.CategoryRoleDelete))

	expected := `
# HELP antinuke_audit_fetches_total Audit log lookups by result
# TYPE antinuke_audit_fetches_total counter
antinuke_audit_fetches_total{result="empty"} 1
antinuke_audit_fetches_total{result="error"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "antinuke_audit_fetches_total"))
}

func TestAttributor_RaidHasNoAuditAction(t *testing.T) {
	src := &fakeSource{}
	a := NewAttributor(src, 5*time.Second, clock, nil)

	assert.Nil(t, a.Attribute(context.Background(), "g1", models.CategoryRaid))
	assert.Zero(t, src.calls)
}

func TestAuditAction_CoversActorCategories(t *testing.T) {
	for _, c := range models.ActorCategories() {
		_, ok := AuditAction(c)
		assert.True(t, ok, c.String())
	}
}

func TestBreakerAuditSource_OpensAfterFailures(t *testing.T) {
	src := &fakeSource{err: errors.New("gateway timeout")}
	b := NewBreakerAuditSource(src, BreakerSettings{FailureThreshold: 3, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := b.FetchLatest(context.Background(), "g1", discordgo.AuditLogActionChannelDelete)
		assert.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State("g1"))

	_, err := b.FetchLatest(context.Background(), "g1", discordgo.AuditLogActionChannelDelete)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 3, src.calls, "open breaker must not reach the source")
}

func TestBreakerAuditSource_EmptyResultIsSuccess(t *testing.T) {
	src := &fakeSource{}
	b := NewBreakerAuditSource(src, BreakerSettings{FailureThreshold: 1, OpenTimeout: time.Minute})

	for i := 0; i < 5; i++ {
		entry, err := b.FetchLatest(context.Background(), "g1", discordgo.AuditLogActionBotAdd)
		require.NoError(t, err)
		assert.Nil(t, entry)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State("g1"))
}

// guildSource fails every lookup for the guilds in failing and returns a
// fresh entry for every other guild.
type guildSource struct {
	failing map[string]error
	at      time.Time
	calls   map[string]int
}

func (g *guildSource) FetchLatest(_ context.Context, guildID string, _ discordgo.AuditLogAction) (*AuditEntry, error) {
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[guildID]++
	if err, ok := g.failing[guildID]; ok {
		return nil, err
	}
	return &AuditEntry{ExecutorID: "executor-" + guildID, CreatedAt: g.at}, nil
}

func TestBreakerAuditSource_GuildsTripIndependently(t *testing.T) {
	src := &guildSource{
		failing: map[string]error{"attacker-guild": errors.New("connection reset")},
		at:      now.Add(-time.Second),
	}
	b := NewBreakerAuditSource(src, BreakerSettings{FailureThreshold: 5, OpenTimeout: 30 * time.Second})
	a := NewAttributor(b, 5*time.Second, clock, nil)

	for i := 0; i < 5; i++ {
		assert.Nil(t, a.Attribute(context.Background(), "attacker-guild", models.CategoryChannelDelete))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State("attacker-guild"))

	actor := a.Attribute(context.Background(), "victim-guild", models.CategoryChannelDelete)
	require.NotNil(t, actor, "another guild's failures must not block attribution")
	assert.Equal(t, "executor-victim-guild", actor.ID)
	assert.Equal(t, gobreaker.StateClosed, b.State("victim-guild"))
	assert.Equal(t, 5, src.calls["attacker-guild"])
}

func TestBreakerAuditSource_ClientErrorsNeverTrip(t *testing.T) {
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	src := &guildSource{failing: map[string]error{
		"g1": fmt.Errorf("fetch audit log for guild g1 action 12: %w", forbidden),
	}}
	b := NewBreakerAuditSource(src, BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute})

	for i := 0; i < 5; i++ {
		_, err := b.FetchLatest(context.Background(), "g1", discordgo.AuditLogActionChannelDelete)
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State("g1"))
	assert.Equal(t, 5, src.calls["g1"])
}

func TestBreakerAuditSource_ServerErrorsAndRateLimitsTrip(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusBadGateway} {
		rest := &discordgo.RESTError{Response: &http.Response{StatusCode: code}}
		src := &guildSource{failing: map[string]error{"g1": rest}}
		b := NewBreakerAuditSource(src, BreakerSettings{FailureThreshold: 2, OpenTimeout: time.Minute})

		for i := 0; i < 2; i++ {
			_, _ = b.FetchLatest(context.Background(), "g1", discordgo.AuditLogActionRoleDelete)
		}
		assert.Equal(t, gobreaker.StateOpen, b.State("g1"), http.StatusText(code))
	}
}

func TestBreakerAuditSource_UnknownGuildIsClosed(t *testing.T) {
	b := NewBreakerAuditSource(&fakeSource{}, BreakerSettings{})
	assert.Equal(t, gobreaker.StateClosed, b.State("never-seen"))
}
