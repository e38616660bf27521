package provider

import (
	"errors"
	"fmt"
)

// Level is the severity of a status message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Message is a single human-readable, leveled status line.
type Message struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

func Info(text string) Message    { return Message{Level: LevelInfo, Text: text} }
func Success(text string) Message { return Message{Level: LevelSuccess, Text: text} }
func Warning(text string) Message { return Message{Level: LevelWarning, Text: text} }
func Danger(text string) Message  { return Message{Level: LevelDanger, Text: text} }

// infoLines converts command output lines to informational messages.
func infoLines(lines []string) []Message {
	msgs := make([]Message, 0, len(lines))
	for _, line := range lines {
		msgs = append(msgs, Info(line))
	}
	return msgs
}

// FailureMessage describes err as a danger-level message. Process failures
// carry their exit code and captured stderr.
func FailureMessage(p Provider, err error) Message {
	var perr *ProcessError
	if errors.As(err, &perr) {
		switch {
		case perr.TimedOut:
			return Danger(fmt.Sprintf("%s did not answer in time", p.Name))
		case perr.Stderr != "":
			return Danger(fmt.Sprintf("%s exited with code %d: %s", p.Name, perr.ExitCode, Sanitize(perr.Stderr, "")))
		default:
			return Danger(fmt.Sprintf("%s exited with code %d", p.Name, perr.ExitCode))
		}
	}
	return Danger(fmt.Sprintf("%s: %v", p.Name, err))
}
