package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drpramila84/600-commanddiscord/internal/config"
	"github.com/drpramila84/600-commanddiscord/internal/metrics"
	"github.com/drpramila84/600-commanddiscord/internal/models"
)

type fakeSink struct {
	deliverable bool
	sendErr     error
	checks      int
	sent        []string
}

func (f *fakeSink) CanDeliver(context.Context, string, string) bool {
	f.checks++
	return f.deliverable
}

func (f *fakeSink) Send(_ context.Context, channelID string, rec *models.IncidentRecord) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, channelID+"/"+rec.ID)
	return nil
}

func incident() *models.IncidentRecord {
	return models.NewIncident("g1", models.CategoryBan, "Antinuke: Mass Ban Detected", "desc",
		time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)).
		AddField("Executor", "nuker (1)", true).
		AddField("Actions", "3 bans in 10s", true)
}

func settingsWithLog(channelID string) *config.GuildSettings {
	cfg := config.DefaultGuildSettings("g1")
	cfg.LogChannelID = channelID
	return cfg
}

func TestReport_NoLogChannel(t *testing.T) {
	sink := &fakeSink{deliverable: true}
	NewReporter(sink, nil).Report(context.Background(), settingsWithLog(""), incident())

	assert.Zero(t, sink.checks)
	assert.Empty(t, sink.sent)
}

func TestReport_UndeliverableChannel(t *testing.T) {
	sink := &fakeSink{deliverable: false}
	NewReporter(sink, nil).Report(context.Background(), settingsWithLog("log"), incident())

	assert.Equal(t, 1, sink.checks)
	assert.Empty(t, sink.sent)
}

func TestReport_SendFailureSwallowed(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := &fakeSink{deliverable: true, sendErr: errors.New("500")}
	r := NewReporter(sink, metrics.NewRegistry(reg))

	assert.NotPanics(t, func() {
		r.Report(context.Background(), settingsWithLog("log"), incident())
	})
	assert.Empty(t, sink.sent)

	expected := `
# HELP antinuke_incident_report_failures_total Incident records that could not be delivered
# TYPE antinuke_incident_report_failures_total counter
antinuke_incident_report_failures_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "antinuke_incident_report_failures_total"))
}

func TestReport_SameRecordTwiceDeliversTwice(t *testing.T) {
	sink := &fakeSink{deliverable: true}
	r := NewReporter(sink, nil)
	rec := incident()

	r.Report(context.Background(), settingsWithLog("log"), rec)
	r.Report(context.Background(), settingsWithLog("log"), rec)

	assert.Equal(t, []string{"log/" + rec.ID, "log/" + rec.ID}, sink.sent)
}

func TestReport_CountsDeliveries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistry(reg)
	r := NewReporter(&fakeSink{deliverable: true}, m)

	r.Report(context.Background(), settingsWithLog("log"), incident())

	expected := `
# HELP antinuke_incident_reports_total Incident records delivered to a log channel
# TYPE antinuke_incident_reports_total counter
antinuke_incident_reports_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "antinuke_incident_reports_total"))
}

func TestRenderEmbed(t *testing.T) {
	rec := incident()
	embed := RenderEmbed(rec)

	assert.Equal(t, "Antinuke: Mass Ban Detected", embed.Title)
	assert.Equal(t, "desc", embed.Description)
	assert.Equal(t, embedColor, embed.Color)
	assert.Equal(t, "2024-05-01T12:00:00Z", embed.Timestamp)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Incident "+rec.ID, embed.Footer.Text)
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Executor", embed.Fields[0].Name)
	assert.Equal(t, "nuker (1)", embed.Fields[0].Value)
	assert.True(t, embed.Fields[0].Inline)
}
