// Package validate holds pure input validation and sanitization helpers shared by the
// queue manager and the command layer. All functions are side-effect free and never panic
// on arbitrary input.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

const (
	MaxUsernameLength        = 25
	MaxMessageLength         = 500
	MaxCommandNameLength     = 20
	MaxCommandResponseLength = 400
)

var (
	usernamePattern    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	commandNamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// reservedNames are built-in command names that dynamic commands may not shadow.
var reservedNames = map[string]struct{}{
	"help": {}, "commands": {}, "join": {}, "leave": {}, "queue": {}, "q": {},
	"here": {}, "nothere": {}, "shuffle": {}, "clearqueue": {}, "teamsize": {},
	"fleave": {}, "fjoin": {}, "moveup": {}, "movedown": {}, "ai": {},
	"botstat": {}, "addcmd": {}, "delcmd": {}, "listcmds": {},
}

// Username validates a Twitch login name.
func Username(name string) error {
	if name == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(name) > MaxUsernameLength {
		return fmt.Errorf("username too long (max %d characters)", MaxUsernameLength)
	}
	if !usernamePattern.MatchString(name) {
		if strings.ContainsRune(name, ' ') {
			return fmt.Errorf("username cannot contain spaces")
		}
		return fmt.Errorf("invalid username format")
	}
	return nil
}

// TeamSize parses and bounds-checks a team size argument.
func TeamSize(raw string, min, max int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("team size must be a number, got %q", raw)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("team size must be between %d and %d, got %d", min, max, n)
	}
	return n, nil
}

// CommandName validates a dynamic command name.
func CommandName(name string) error {
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}
	if len(name) > MaxCommandNameLength {
		return fmt.Errorf("command name too long (max %d characters)", MaxCommandNameLength)
	}
	if !commandNamePattern.MatchString(name) {
		return fmt.Errorf("command name must contain only lowercase letters, numbers, and underscores")
	}
	if _, ok := reservedNames[name]; ok {
		return fmt.Errorf("%q is a reserved command name", name)
	}
	return nil
}

// CommandResponse validates dynamic command response text.
func CommandResponse(resp string) error {
	if resp == "" {
		return fmt.Errorf("command response cannot be empty")
	}
	if len(resp) > MaxCommandResponseLength {
		return fmt.Errorf("command response too long (max %d characters)", MaxCommandResponseLength)
	}
	distinct := map[rune]struct{}{}
	for _, r := range resp {
		distinct[r] = struct{}{}
	}
	if len(distinct) < 3 && len(resp) > 5 {
		return fmt.Errorf("command response is too repetitive")
	}
	return nil
}

// SanitizeMessage caps length, strips non-printable characters, and collapses whitespace.
func SanitizeMessage(text string) string {
	if text == "" {
		return ""
	}
	if len(text) > MaxMessageLength {
		text = text[:MaxMessageLength]
	}
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !lastSpace {
				b.WriteRune(' ')
			}
			lastSpace = true
			continue
		}
		if !unicode.IsPrint(r) {
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}
