package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Band string

const (
	BandGreen  Band = "green"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// ClientRisk is the scored engagement state of one client, derived from
// the most recent chat message or progress record.
type ClientRisk struct {
	ClientID     snowflake.ID `json:"client_id"`
	ClientName   string       `json:"client_name"`
	Phone        *string      `json:"phone,omitempty"`
	LastActivity *time.Time   `json:"last_activity,omitempty"`
	ElapsedDays  float64      `json:"elapsed_days"`
	Band         Band         `json:"band"`
}

// Alert is a nudge-worthy risk entry. Only yellow and red clients produce
// alerts.
type Alert struct {
	ClientID   snowflake.ID `json:"client_id"`
	ClientName string       `json:"client_name"`
	Priority   Priority     `json:"priority"`
	Message    string       `json:"message"`
}

// NudgeResult reports the best-effort fan-out outcome. Individual send
// failures are swallowed; only the success count survives.
type NudgeResult struct {
	Attempted int `json:"attempted"`
	Sent      int `json:"sent"`
}

type Service interface {
	// ScoreClients recomputes the risk band of every client on the coach's
	// roster from live activity data.
	ScoreClients(ctx context.Context, coachID snowflake.ID) ([]ClientRisk, error)

	// BuildAlerts returns one alert per at-risk client, high priority
	// first. Clients within the green window produce no alert.
	BuildAlerts(ctx context.Context, coachID snowflake.ID) ([]Alert, error)

	// NudgeAllRed sends a re-engagement message to every red client with a
	// phone on file.
	NudgeAllRed(ctx context.Context, coachID snowflake.ID) (NudgeResult, error)
}
