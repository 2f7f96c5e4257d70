// Package queue builds and maintains the study queues of a deck.
package queue

import (
	"github.com/domino14/srs_scheduler/internal/model"
)

// Entry is a card waiting to be studied. It is either a LearningEntry or a
// MainEntry.
type Entry interface {
	CardID() model.CardID
	CardMtime() int64
	isEntry()
}

type MainEntryKind uint8

const (
	KindNew MainEntryKind = iota
	KindReview
	KindInterdayLearning
)

func (k MainEntryKind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindReview:
		return "review"
	case KindInterdayLearning:
		return "interday_learning"
	}
	return "unknown"
}

// LearningEntry is an intraday learning card, due at a unix timestamp.
type LearningEntry struct {
	Due   int64
	ID    model.CardID
	Mtime int64
}

type MainEntry struct {
	ID    model.CardID
	Mtime int64
	Kind  MainEntryKind
}

func (e LearningEntry) CardID() model.CardID { return e.ID }
func (e LearningEntry) CardMtime() int64     { return e.Mtime }
func (LearningEntry) isEntry()               {}

func (e MainEntry) CardID() model.CardID { return e.ID }
func (e MainEntry) CardMtime() int64     { return e.Mtime }
func (MainEntry) isEntry()               {}
