// Package model defines the data models for the backlog manager.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Validation errors for game input.
var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPlatform = errors.New("invalid platform")
	ErrNegativePrice   = errors.New("price must not be negative")
)

// Status is the lifecycle stage of a game in the backlog.
type Status string

// Game statuses, in board column order.
const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Statuses returns every status in board column order.
func Statuses() []Status {
	return []Status{StatusNotStarted, StatusInProgress, StatusCompleted}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// Label returns the human-readable name of the status.
func (s Status) Label() string {
	switch s {
	case StatusNotStarted:
		return "Not Started"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

// ParseStatus converts user input into a Status.
// Accepts the stored identifier or the label, case-insensitively ("in progress", "In_Progress").
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Platform is the platform a game is owned on. The empty value means unspecified.
type Platform string

// Known platforms.
const (
	PlatformNone   Platform = ""
	PlatformPC     Platform = "PC"
	PlatformPS     Platform = "PlayStation"
	PlatformXbox   Platform = "Xbox"
	PlatformSwitch Platform = "Nintendo Switch"
	PlatformMobile Platform = "Mobile"
	PlatformOther  Platform = "Other"
)

// Platforms returns every explicit platform in display order.
func Platforms() []Platform {
	return []Platform{PlatformPC, PlatformPS, PlatformXbox, PlatformSwitch, PlatformMobile, PlatformOther}
}

// Valid reports whether p is unspecified or one of the known platforms.
func (p Platform) Valid() bool {
	switch p {
	case PlatformNone, PlatformPC, PlatformPS, PlatformXbox, PlatformSwitch, PlatformMobile, PlatformOther:
		return true
	default:
		return false
	}
}

// ParsePlatform converts user input into a Platform, matching case-insensitively.
// Empty input yields PlatformNone.
func ParsePlatform(s string) (Platform, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PlatformNone, nil
	}
	for _, p := range Platforms() {
		if strings.EqualFold(string(p), s) {
			return p, nil
		}
	}
	// Common shorthands
	switch strings.ToLower(s) {
	case "ps", "ps4", "ps5":
		return PlatformPS, nil
	case "switch":
		return PlatformSwitch, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
}

// Game is one entry in the backlog. JSON tags define the stored format.
type Game struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Platform      Platform   `json:"platform,omitempty"`
	Status        Status     `json:"status"`
	DateAdded     time.Time  `json:"dateAdded"`
	DateCompleted *time.Time `json:"dateCompleted,omitempty"`
	Price         *Money     `json:"price,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Clone returns a deep copy of the game.
func (g Game) Clone() Game {
	out := g
	if g.DateCompleted != nil {
		t := *g.DateCompleted
		out.DateCompleted = &t
	}
	if g.Price != nil {
		p := *g.Price
		out.Price = &p
	}
	return out
}

// CloneGames returns a deep copy of the slice, preserving order.
func CloneGames(games []Game) []Game {
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = g.Clone()
	}
	return out
}

// NewGame is the input for adding a game: a record without id and dateAdded.
type NewGame struct {
	Title    string   `json:"title"`
	Platform Platform `json:"platform,omitempty"`
	Status   Status   `json:"status,omitempty"`
	Price    *Money   `json:"price,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// Normalize trims text fields and applies the default status.
func (n *NewGame) Normalize() {
	n.Title = strings.TrimSpace(n.Title)
	n.Notes = strings.TrimSpace(n.Notes)
	if n.Status == "" {
		n.Status = StatusNotStarted
	}
}

// Validate checks the input after normalization.
func (n *NewGame) Validate() error {
	if n.Title == "" {
		return ErrEmptyTitle
	}
	if !n.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(n.Status))
	}
	if !n.Platform.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, string(n.Platform))
	}
	if n.Price != nil && n.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// GameUpdate holds the fields to change on an existing game. Nil fields are left as they are.
// An empty Platform or Notes clears the field; ClearPrice removes the price.
type GameUpdate struct {
	Title      *string   `json:"title,omitempty"`
	Platform   *Platform `json:"platform,omitempty"`
	Status     *Status   `json:"status,omitempty"`
	Price      *Money    `json:"price,omitempty"`
	ClearPrice bool      `json:"clearPrice,omitempty"`
	Notes      *string   `json:"notes,omitempty"`
}

// StatusUpdate is a GameUpdate that only changes the status.
func StatusUpdate(s Status) GameUpdate {
	return GameUpdate{Status: &s}
}

// Validate checks the update before it is applied.
func (u *GameUpdate) Validate() error {
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return ErrEmptyTitle
	}
	if u.Status != nil && !u.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(*u.Status))
	}
	if u.Platform != nil && !u.Platform.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPlatform, string(*u.Platform))
	}
	if u.Price != nil && u.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// ApplyFields copies the non-status fields of u onto g.
// Status changes go through the transition policy and are not handled here.
func (u *GameUpdate) ApplyFields(g *Game) {
	if u.Title != nil {
		g.Title = strings.TrimSpace(*u.Title)
	}
	if u.Platform != nil {
		g.Platform = *u.Platform
	}
	switch {
	case u.ClearPrice:
		g.Price = nil
	case u.Price != nil:
		p := *u.Price
		g.Price = &p
	}
	if u.Notes != nil {
		g.Notes = strings.TrimSpace(*u.Notes)
	}
}

// Stats is the derived summary of a backlog. It is never stored.
type Stats struct {
	Total              int   `json:"total"`
	NotStarted         int   `json:"notStarted"`
	InProgress         int   `json:"inProgress"`
	Completed          int   `json:"completed"`
	TotalSpent         Money `json:"totalSpent"`
	EstimatedRemaining Money `json:"estimatedRemaining"`
}
