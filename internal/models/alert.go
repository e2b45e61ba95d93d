package models

import (
	"time"

	"github.com/google/uuid"
)

type Field struct {
	Name   string
	Value  string
	Inline bool
}

// IncidentRecord is the descriptive output of a breach. It is handed to the
// reporter and never read back.
type IncidentRecord struct {
	ID          string
	GuildID     string
	Category    Category
	Title       string
	Description string
	Fields      []Field
	Timestamp   time.Time
}

func NewIncident(guildID string, category Category, title, description string, at time.Time) *IncidentRecord {
	return &IncidentRecord{
		ID:          uuid.NewString(),
		GuildID:     guildID,
		Category:    category,
		Title:       title,
		Description: description,
		Timestamp:   at,
	}
}

func (r *IncidentRecord) AddField(name, value string, inline bool) *IncidentRecord {
	r.Fields = append(r.Fields, Field{Name: name, Value: value, Inline: inline})
	return r
}
