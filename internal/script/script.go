// Package script holds XFOIL command scripts: the ordered list of tokens
// fed to XFOIL's interactive prompt, and the contract every script must
// satisfy before it is sent to the process.
package script

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Prefix disables XFOIL's graphics window. Every script starts with it.
var Prefix = []string{"PLOP", "G", ""}

// Suffix backs out of the current menu and exits XFOIL. Every script
// ends with it.
var Suffix = []string{"", "QUIT"}

// ErrMalformed is matched by every command list contract violation.
var ErrMalformed = errors.New("malformed command list")

// MalformedError describes why a command list was rejected.
type MalformedError struct {
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformed, e.Reason)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// Validate checks that cmds begins with Prefix and ends with Suffix.
// The tokens in between are not inspected. The prefix and suffix may
// share the blank token, so the shortest valid list is
// PLOP, G, "", QUIT.
func Validate(cmds []string) error {
	if len(cmds) == 0 {
		return &MalformedError{Reason: "no command list supplied"}
	}
	if len(cmds) < len(Prefix) || !slices.Equal(cmds[:len(Prefix)], Prefix) {
		return &MalformedError{Reason: fmt.Sprintf("must begin with %q", Prefix)}
	}
	if len(cmds) < len(Suffix) || !slices.Equal(cmds[len(cmds)-len(Suffix):], Suffix) {
		return &MalformedError{Reason: fmt.Sprintf("must end with %q", Suffix)}
	}
	return nil
}

// Script is a validated, immutable command list. The zero value holds
// no commands and fails Validate.
type Script struct {
	cmds []string
}

// New validates cmds and returns them as a Script. cmds is copied.
func New(cmds []string) (Script, error) {
	if err := Validate(cmds); err != nil {
		return Script{}, err
	}
	return Script{cmds: slices.Clone(cmds)}, nil
}

// Raw returns cmds as a Script without validating them, so a malformed
// list can still be recorded. Running it fails with ErrMalformed.
func Raw(cmds []string) Script {
	return Script{cmds: slices.Clone(cmds)}
}

// Wrap surrounds body with Prefix and Suffix. The result is always valid.
func Wrap(body ...string) Script {
	cmds := make([]string, 0, len(Prefix)+len(body)+len(Suffix))
	cmds = append(cmds, Prefix...)
	cmds = append(cmds, body...)
	cmds = append(cmds, Suffix...)
	return Script{cmds: cmds}
}

// ReadCommands reads one token per line from r. Blank lines are tokens;
// a single trailing newline is not.
func ReadCommands(r io.Reader) ([]string, error) {
	var cmds []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		cmds = append(cmds, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return cmds, nil
}

// Parse reads a script with ReadCommands and validates it.
func Parse(r io.Reader) (Script, error) {
	cmds, err := ReadCommands(r)
	if err != nil {
		return Script{}, err
	}
	return New(cmds)
}

// Validate re-checks the prefix/suffix contract.
func (s Script) Validate() error {
	return Validate(s.cmds)
}

// Commands returns a copy of the command tokens.
func (s Script) Commands() []string {
	return slices.Clone(s.cmds)
}

// Body returns the tokens between Prefix and Suffix. When the two share
// the blank token the body is empty.
func (s Script) Body() []string {
	if s.Validate() != nil {
		return nil
	}
	lo, hi := len(Prefix), len(s.cmds)-len(Suffix)
	if hi < lo {
		return nil
	}
	return slices.Clone(s.cmds[lo:hi])
}

// Len returns the number of tokens.
func (s Script) Len() int { return len(s.cmds) }

// IsZero reports whether s holds no commands.
func (s Script) IsZero() bool { return len(s.cmds) == 0 }

// Bytes returns the wire form of the script: the tokens joined with
// newlines.
func (s Script) Bytes() []byte {
	var b bytes.Buffer
	for i, c := range s.cmds {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c)
	}
	return b.Bytes()
}

func (s Script) String() string {
	return string(s.Bytes())
}
