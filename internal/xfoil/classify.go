package xfoil

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrToolFailure is matched by runs where XFOIL exited non-zero.
	ErrToolFailure = errors.New("xfoil exited with a non-zero status")
	// ErrCommandNotRecognized is matched by runs whose transcript shows
	// XFOIL rejecting a command.
	ErrCommandNotRecognized = errors.New("command not recognized")
)

// ToolError reports a non-zero XFOIL exit status.
type ToolError struct {
	ExitCode int
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s (%d)", ErrToolFailure, e.ExitCode)
}

func (e *ToolError) Is(target error) bool {
	return target == ErrToolFailure
}

// CommandNotRecognizedError names the first command XFOIL rejected.
type CommandNotRecognizedError struct {
	Token string
}

func (e *CommandNotRecognizedError) Error() string {
	return fmt.Sprintf("%s %s.", e.Token, ErrCommandNotRecognized)
}

func (e *CommandNotRecognizedError) Is(target error) bool {
	return target == ErrCommandNotRecognized
}

// notRecognized matches XFOIL's complaint about an unknown command at
// any menu prompt, e.g. "XFOIL c> FOO command not recognized.". \s also
// matches newlines, so a wrapped message still matches.
var notRecognized = regexp.MustCompile(`XFOIL\s+c>\s+(\S+)\s+command not recognized\.`)

// Unrecognized is one rejected command found in a transcript.
type Unrecognized struct {
	Token string `json:"token"`
	Line  int    `json:"line"` // 1-based line of the match in stdout
}

// UnrecognizedCommands scans stdout for every rejected command. The scan
// is textual and best-effort: XFOIL has no structured error channel.
func UnrecognizedCommands(stdout []byte) []Unrecognized {
	var out []Unrecognized
	for _, m := range notRecognized.FindAllSubmatchIndex(stdout, -1) {
		out = append(out, Unrecognized{
			Token: string(stdout[m[2]:m[3]]),
			Line:  bytes.Count(stdout[:m[0]], []byte{'\n'}) + 1,
		})
	}
	return out
}

// Classify turns a finished run into an error, or nil on success. A
// rejected command is reported ahead of the exit status: it is the more
// specific diagnosis and XFOIL's exit status does not reflect it
// reliably.
func Classify(exitCode int, stdout []byte) error {
	if m := notRecognized.FindSubmatch(stdout); m != nil {
		return &CommandNotRecognizedError{Token: string(m[1])}
	}
	if exitCode != 0 {
		return &ToolError{ExitCode: exitCode}
	}
	return nil
}
