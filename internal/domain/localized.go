package domain

import "strings"

// Localized carries the same label in the facility's two display languages.
type Localized struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Trimmed returns a copy with surrounding whitespace removed from both values.
func (l Localized) Trimmed() Localized {
	return Localized{
		Primary:   strings.TrimSpace(l.Primary),
		Secondary: strings.TrimSpace(l.Secondary),
	}
}

// IsEmpty reports whether neither language carries text.
func (l Localized) IsEmpty() bool {
	return strings.TrimSpace(l.Primary) == "" && strings.TrimSpace(l.Secondary) == ""
}
