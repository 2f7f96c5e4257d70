package model

import (
	"strings"
)

const (
	DefaultDeckID       DeckID       = 1
	DefaultDeckConfigID DeckConfigID = 1

	deckSeparator = "::"
)

// FilteredDeck holds the options of a deck that borrows cards from others.
type FilteredDeck struct {
	Search     string `json:"search"`
	Reschedule bool   `json:"reschedule"`
	// PreviewDelayMins is the base preview step used when Reschedule is off.
	PreviewDelayMins uint32 `json:"preview_delay_mins"`
}

// DeckToday tracks how much was studied in a deck on a given day.
type DeckToday struct {
	Day                 uint32 `json:"day"`
	NewStudied          int32  `json:"new_studied"`
	ReviewStudied       int32  `json:"review_studied"`
	LearningStudied     int32  `json:"learning_studied"`
	MillisecondsStudied int64  `json:"milliseconds_studied"`
}

type Deck struct {
	ID       DeckID        `json:"id"`
	Name     string        `json:"name"`
	Mtime    int64         `json:"mtime"`
	Usn      Usn           `json:"usn"`
	ConfigID DeckConfigID  `json:"config_id,omitempty"`
	Filtered *FilteredDeck `json:"filtered,omitempty"`
	Today    DeckToday     `json:"today"`
}

func (d *Deck) IsFiltered() bool {
	return d.Filtered != nil
}

func (d Deck) Clone() Deck {
	if d.Filtered != nil {
		f := *d.Filtered
		d.Filtered = &f
	}
	return d
}

// ParentName returns the name of the enclosing deck, or "" at the top
// level.
func (d *Deck) ParentName() string {
	idx := strings.LastIndex(d.Name, deckSeparator)
	if idx < 0 {
		return ""
	}
	return d.Name[:idx]
}

// IsDescendantOf reports whether d sits beneath the named deck.
func (d *Deck) IsDescendantOf(name string) bool {
	return strings.HasPrefix(d.Name, name+deckSeparator)
}

// StudiedToday resets the counters when they belong to an earlier day.
func (d *Deck) StudiedToday(today uint32) DeckToday {
	if d.Today.Day != today {
		return DeckToday{Day: today}
	}
	return d.Today
}
