package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/srs_scheduler/internal/errs"
)

func TestDefaultDeckConfigValid(t *testing.T) {
	is := is.New(t)
	cfg := DefaultDeckConfig()
	is.NoErr(cfg.Validate())
}

func TestDeckConfigValidation(t *testing.T) {
	is := is.New(t)
	cfg := DefaultDeckConfig()
	cfg.LearnSteps = []float32{1, 0}
	cfg.GraduatingIntervalGood = 0
	cfg.Name = ""
	err := cfg.Validate()
	is.True(errors.Is(err, errs.ErrInvalidInput))
	is.True(strings.Contains(err.Error(), "LearnSteps[1]"))
	is.True(strings.Contains(err.Error(), "GraduatingIntervalGood"))
	is.True(strings.Contains(err.Error(), "Name"))
}

func TestDeckConfigCloneIsDeep(t *testing.T) {
	is := is.New(t)
	cfg := DefaultDeckConfig()
	cp := cfg.Clone()
	cp.LearnSteps[0] = 5
	is.Equal(cfg.LearnSteps[0], float32(1))
}

func TestRestoreQueueFromType(t *testing.T) {
	is := is.New(t)
	c := Card{Type: CardTypeLearn, Queue: QueueSchedBuried, Due: 1_700_000_000}
	c.RestoreQueueFromType()
	is.Equal(c.Queue, QueueLearn)

	c = Card{Type: CardTypeRelearn, Queue: QueueSuspended, Due: 120}
	c.RestoreQueueFromType()
	is.Equal(c.Queue, QueueDayLearn)

	c = Card{Type: CardTypeReview, Queue: QueueUserBuried}
	c.RestoreQueueFromType()
	is.Equal(c.Queue, QueueReview)
}

func TestRemoveFromFilteredDeck(t *testing.T) {
	is := is.New(t)
	c := Card{DeckID: 5, OriginalDeckID: 1, Type: CardTypeReview, Queue: QueueReview, Due: 3, OriginalDue: 40}
	c.RemoveFromFilteredDeckRestoringQueue()
	is.Equal(c.DeckID, DeckID(1))
	is.Equal(c.OriginalDeckID, DeckID(0))
	is.Equal(c.Due, int64(40))
	is.Equal(c.HomeDeckID(), DeckID(1))
}

func TestNoteTags(t *testing.T) {
	is := is.New(t)
	n := Note{Tags: []string{"Leech"}}
	is.True(n.HasTag(LeechTag))
	is.True(!n.AddTag("leech"))
	is.True(n.AddTag("verbs"))
	is.Equal(JoinTags(n.Tags), " Leech verbs ")
	is.Equal(SplitTags(" Leech verbs "), []string{"Leech", "verbs"})
}

func TestDeckHierarchy(t *testing.T) {
	is := is.New(t)
	d := Deck{Name: "Spanish::Verbs::Irregular"}
	is.Equal(d.ParentName(), "Spanish::Verbs")
	is.True(d.IsDescendantOf("Spanish"))
	is.True(!d.IsDescendantOf("Span"))
	d.Today = DeckToday{Day: 3, NewStudied: 4}
	is.Equal(d.StudiedToday(3).NewStudied, int32(4))
	is.Equal(d.StudiedToday(4).NewStudied, int32(0))
}
