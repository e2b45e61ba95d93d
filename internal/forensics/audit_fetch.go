package forensics

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

// AuditEntry is the part of an audit log entry needed for attribution.
type AuditEntry struct {
	ID          string
	ExecutorID  string
	ExecutorTag string
	CreatedAt   time.Time
}

// AuditSource returns the most recent audit entry of one action type, or nil
// when the guild has none.
type AuditSource interface {
	FetchLatest(ctx context.Context, guildID string, action discordgo.AuditLogAction) (*AuditEntry, error)
}

// AuditLogFetcher reads the audit log over the Discord REST API.
type AuditLogFetcher struct {
	session *discordgo.Session
	timeout time.Duration
}

func NewAuditLogFetcher(session *discordgo.Session, timeout time.Duration) *AuditLogFetcher {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &AuditLogFetcher{session: session, timeout: timeout}
}

func (f *AuditLogFetcher) FetchLatest(ctx context.Context, guildID string, action discordgo.AuditLogAction) (*AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	audit, err := f.session.GuildAuditLog(guildID, "", "", int(action), 1, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch audit log for guild %s action %d: %w", guildID, action, err)
	}
	if audit == nil || len(audit.AuditLogEntries) == 0 {
		return nil, nil
	}

	entry := audit.AuditLogEntries[0]
	created, err := discordgo.SnowflakeTimestamp(entry.ID)
	if err != nil {
		return nil, fmt.Errorf("decode audit entry id %q: %w", entry.ID, err)
	}

	out := &AuditEntry{
		ID:         entry.ID,
		ExecutorID: entry.UserID,
		CreatedAt:  created,
	}
	for _, u := range audit.Users {
		if u != nil && u.ID == entry.UserID {
			out.ExecutorTag = u.String()
			break
		}
	}
	return out, nil
}
