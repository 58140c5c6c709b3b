package dispatch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInput indicates malformed operator command arguments.
var ErrInvalidInput = errors.New("invalid input")

// Command is one operator command variant.
// Params: closed set of structured-argument variants below.
// Returns: exhaustive dispatch target for Execute.
type Command interface {
	isCommand()
}

// Ack acknowledges one alert; empty fingerprint requests a listing.
type Ack struct {
	Fingerprint string
}

// Silence silences one alert name for a whole-hour duration.
type Silence struct {
	AlertName string
	Duration  string
}

// Snooze silences one alert name, or all non-critical alerts when no
// name is given, for a minute or hour duration.
type Snooze struct {
	Duration  string
	AlertName string
}

// Escalate appends one audit-trail entry for an alert.
type Escalate struct {
	Fingerprint string
	Message     string
}

// Resolve marks one alert resolved; empty fingerprint requests a listing.
type Resolve struct {
	Fingerprint string
}

// Restart restarts one container via the container runtime.
type Restart struct {
	Container string
}

// ClearHistory empties the alert and acknowledgement tables.
type ClearHistory struct{}

func (Ack) isCommand()          {}
func (Silence) isCommand()      {}
func (Snooze) isCommand()       {}
func (Escalate) isCommand()     {}
func (Resolve) isCommand()      {}
func (Restart) isCommand()      {}
func (ClearHistory) isCommand() {}

// Parse converts one chat command line into a command variant.
// Params: raw text like "/ack abc123" or "silence HighCPU 2h".
// Returns: command variant or ErrInvalidInput for unknown names; omitted
// arguments produce zero-valued fields handled as listing/help by Execute.
func Parse(text string) (Command, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrInvalidInput)
	}

	name := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	args := fields[1:]

	switch name {
	case "ack":
		command := Ack{}
		if len(args) > 0 {
			command.Fingerprint = args[0]
		}
		return command, nil
	case "silence":
		command := Silence{}
		if len(args) > 0 {
			command.AlertName = args[0]
		}
		if len(args) > 1 {
			command.Duration = strings.ToLower(args[1])
		}
		return command, nil
	case "snooze":
		command := Snooze{}
		if len(args) > 0 {
			command.Duration = strings.ToLower(args[0])
		}
		if len(args) > 1 {
			command.AlertName = args[1]
		}
		return command, nil
	case "escalate":
		command := Escalate{}
		if len(args) > 0 {
			command.Fingerprint = args[0]
		}
		if len(args) > 1 {
			command.Message = strings.Join(args[1:], " ")
		}
		return command, nil
	case "resolve":
		command := Resolve{}
		if len(args) > 0 {
			command.Fingerprint = args[0]
		}
		return command, nil
	case "restart":
		command := Restart{}
		if len(args) > 0 {
			command.Container = args[0]
		}
		return command, nil
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidInput, name)
	}
}

// parseSilenceDuration parses whole-hour silence durations.
// Params: value like "2h".
// Returns: duration or ErrInvalidInput; only the h suffix is accepted.
func parseSilenceDuration(value string) (time.Duration, error) {
	if !strings.HasSuffix(value, "h") {
		return 0, fmt.Errorf("%w: duration %q must look like 1h, 2h, 4h", ErrInvalidInput, value)
	}
	hours, err := strconv.Atoi(strings.TrimSuffix(value, "h"))
	if err != nil || hours <= 0 {
		return 0, fmt.Errorf("%w: duration %q must look like 1h, 2h, 4h", ErrInvalidInput, value)
	}
	return time.Duration(hours) * time.Hour, nil
}

// parseSnoozeDuration parses minute or hour snooze durations.
// Params: value like "30m" or "2h".
// Returns: duration or ErrInvalidInput.
func parseSnoozeDuration(value string) (time.Duration, error) {
	var unit time.Duration
	switch {
	case strings.HasSuffix(value, "m"):
		unit = time.Minute
	case strings.HasSuffix(value, "h"):
		unit = time.Hour
	default:
		return 0, fmt.Errorf("%w: duration %q must look like 30m or 2h", ErrInvalidInput, value)
	}
	amount, err := strconv.Atoi(value[:len(value)-1])
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("%w: duration %q must look like 30m or 2h", ErrInvalidInput, value)
	}
	return time.Duration(amount) * unit, nil
}
