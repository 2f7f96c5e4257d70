package queue

import (
	"github.com/domino14/srs_scheduler/internal/model"
)

// BuryMode says which kinds of sibling cards are hidden once a card of a
// note has been queued.
type BuryMode struct {
	BuryNew              bool
	BuryReviews          bool
	BuryInterdayLearning bool
}

func BuryModeFromConfig(cfg *model.DeckConfig) BuryMode {
	return BuryMode{
		BuryNew:              cfg.BuryNew,
		BuryReviews:          cfg.BuryReviews,
		BuryInterdayLearning: cfg.BuryInterdayLearning,
	}
}

func (m BuryMode) Or(o BuryMode) BuryMode {
	return BuryMode{
		BuryNew:              m.BuryNew || o.BuryNew,
		BuryReviews:          m.BuryReviews || o.BuryReviews,
		BuryInterdayLearning: m.BuryInterdayLearning || o.BuryInterdayLearning,
	}
}

func (m BuryMode) Any() bool {
	return m.BuryNew || m.BuryReviews || m.BuryInterdayLearning
}
