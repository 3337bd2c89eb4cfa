package engine

import (
	"strings"
	"unicode"
)

// Action describes one vote option and the game input it triggers when it wins.
type Action struct {
	Code          Choice
	Name          string
	Description   string
	Keypress      string // empty when the action is vote-only
	CooldownGroup string // empty when the keypress has no cooldown
	Enabled       bool
	Phase         int
}

var ActionTable = []Action{
	{
		Code:          ChoiceKill,
		Name:          "Kill",
		Description:   "Execute current organism (Delete key)",
		Keypress:      "Delete",
		CooldownGroup: "primary",
		Enabled:       true,
		Phase:         1,
	},
	{
		Code:          ChoiceLay,
		Name:          "Lay",
		Description:   "Force reproduction (Insert key)",
		Keypress:      "Insert",
		CooldownGroup: "primary",
		Enabled:       true,
		Phase:         1,
	},
	{
		Code:        ChoiceExtend,
		Name:        "Extend",
		Description: "Keep watching current organism (no action)",
		Enabled:     true,
		Phase:       1,
	},
}

func LookupAction(c Choice) (Action, bool) {
	for _, a := range ActionTable {
		if a.Code == c {
			return a, true
		}
	}
	return Action{}, false
}

// IsValidAction reports whether c names an enabled action.
func IsValidAction(c Choice) bool {
	a, ok := LookupAction(c)
	return ok && a.Enabled
}

func EnabledActions() []Choice {
	codes := make([]Choice, 0, len(ActionTable))
	for _, a := range ActionTable {
		if a.Enabled {
			codes = append(codes, a.Code)
		}
	}
	return codes
}

// ParseChoice normalizes chat input ("K", " l ") into a Choice.
// ValidVoter reports whether a voter name is free of control characters.
func ValidVoter(name string) bool {
	return strings.IndexFunc(name, unicode.IsControl) < 0
}

func ParseChoice(s string) (Choice, bool) {
	c := Choice(strings.ToLower(strings.TrimSpace(s)))
	if !IsValidAction(c) {
		return "", false
	}
	return c, true
}
