package model

import (
	"fmt"
	"time"
)

// Environment variables carrying the run context.
// They match the names exported by the CI workflow.
const (
	EnvStartTime = "WORKFLOW_START_TIME"
	EnvTimezone  = "WORKFLOW_TIMEZONE"
)

// StartTimeLayout is the layout of WORKFLOW_START_TIME.
const StartTimeLayout = "2006-01-02 15:04:05 UTC"

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "Europe/Paris"

// RunContext carries the run start time and timezone through the fetcher and
// the renderer so every label of one run agrees.
type RunContext struct {
	// Start is the instant the run started, always in Location.
	Start time.Time

	// Location is the timezone used for every human-facing label.
	Location *time.Location
}

// NewRunContext builds a RunContext for the given instant and IANA timezone.
func NewRunContext(start time.Time, timezone string) (RunContext, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return RunContext{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return RunContext{
		Start:    start.In(loc),
		Location: loc,
	}, nil
}

// ParseStartTime parses a WORKFLOW_START_TIME value. RFC 3339 is accepted too.
func ParseStartTime(raw string) (time.Time, error) {
	if t, err := time.ParseInLocation(StartTimeLayout, raw, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized start time %q", raw)
	}
	return t, nil
}

// Timezone returns the IANA name of the run timezone.
func (rc RunContext) Timezone() string {
	if rc.Location == nil {
		return "UTC"
	}
	return rc.Location.String()
}

// UpdateLabel is the short "updated at" label written next to each forecast.
func (rc RunContext) UpdateLabel() string {
	return rc.Start.Format("02.01. 15:04")
}

// DisplayTime is the long label shown in the report title.
func (rc RunContext) DisplayTime() string {
	return rc.Start.Format("02/01/2006 à 15:04")
}

// Env returns the environment entries that hand this context to an external
// fetcher or renderer process.
func (rc RunContext) Env() []string {
	return []string{
		EnvStartTime + "=" + rc.Start.UTC().Format(StartTimeLayout),
		EnvTimezone + "=" + rc.Timezone(),
	}
}
