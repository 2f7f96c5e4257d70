package model

type RevlogReviewKind uint8

const (
	RevlogLearning RevlogReviewKind = iota
	RevlogReview
	RevlogRelearning
	RevlogFiltered
	RevlogManual
)

func (k RevlogReviewKind) String() string {
	switch k {
	case RevlogLearning:
		return "learning"
	case RevlogReview:
		return "review"
	case RevlogRelearning:
		return "relearning"
	case RevlogFiltered:
		return "filtered"
	case RevlogManual:
		return "manual"
	}
	return "unknown"
}

// RevlogEntry records one answer. Interval and LastInterval are days when
// positive and seconds when negative.
type RevlogEntry struct {
	ID           RevlogID         `json:"id"`
	CardID       CardID           `json:"card_id"`
	Usn          Usn              `json:"usn"`
	ButtonChosen uint8            `json:"button_chosen"`
	Interval     int32            `json:"interval"`
	LastInterval int32            `json:"last_interval"`
	EaseFactor   uint32           `json:"ease_factor"`
	TakenMillis  uint32           `json:"taken_millis"`
	ReviewKind   RevlogReviewKind `json:"review_kind"`
}
