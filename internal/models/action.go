package models

import "strings"

// Policy is the punishment applied to an actor on breach.
type Policy uint8

const (
	PolicyStripRoles Policy = iota
	PolicyBan
	PolicyKick
)

func (p Policy) String() string {
	switch p {
	case PolicyBan:
		return "BAN"
	case PolicyKick:
		return "KICK"
	default:
		return "REMOVE_ROLES"
	}
}

// ParsePolicy maps the stored policy string to a Policy. Anything unknown,
// including the empty string, is PolicyStripRoles.
func ParsePolicy(s string) Policy {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BAN":
		return PolicyBan
	case "KICK":
		return PolicyKick
	default:
		return PolicyStripRoles
	}
}

const (
	OutcomeBanned       = "banned"
	OutcomeKicked       = "kicked"
	OutcomeRolesRemoved = "roles removed"
	OutcomeFailed       = "failed"
)

// Outcome is the result of one platform action attempt.
type Outcome struct {
	Label  string
	Reason string
	OK     bool
}

func Success(label string) Outcome {
	return Outcome{Label: label, OK: true}
}

func Failed(reason string) Outcome {
	return Outcome{Label: OutcomeFailed, Reason: reason}
}

func (o Outcome) String() string {
	if o.OK || o.Reason == "" {
		return o.Label
	}
	return o.Label + " (" + o.Reason + ")"
}
