package model

type (
	CardID       int64
	NoteID       int64
	DeckID       int64
	DeckConfigID int64
	RevlogID     int64
	Usn          int32
)

type CardType uint8

const (
	CardTypeNew CardType = iota
	CardTypeLearn
	CardTypeReview
	CardTypeRelearn
)

type CardQueue int8

const (
	QueueUserBuried  CardQueue = -3
	QueueSchedBuried CardQueue = -2
	QueueSuspended   CardQueue = -1
	QueueNew         CardQueue = 0
	QueueLearn       CardQueue = 1
	QueueReview      CardQueue = 2
	QueueDayLearn    CardQueue = 3
	QueuePreview     CardQueue = 4
)

// Intraday learning cards are due at a unix timestamp; anything smaller
// than this is a day number.
const learnDueCutoff = 1_000_000_000

// FsrsMemoryState is the per-card memory estimate used when FSRS is enabled.
type FsrsMemoryState struct {
	Stability  float32 `json:"stability"`
	Difficulty float32 `json:"difficulty"`
}

// Card is a persisted card row.
//
// Due means different things depending on the queue: a position for new
// cards, a unix timestamp for intraday learning and a day number (relative
// to collection creation) for everything else.
type Card struct {
	ID             CardID           `json:"id"`
	NoteID         NoteID           `json:"note_id"`
	DeckID         DeckID           `json:"deck_id"`
	OriginalDeckID DeckID           `json:"original_deck_id,omitempty"`
	TemplateIdx    uint16           `json:"template_idx"`
	Mtime          int64            `json:"mtime"`
	Usn            Usn              `json:"usn"`
	Type           CardType         `json:"type"`
	Queue          CardQueue        `json:"queue"`
	Due            int64            `json:"due"`
	OriginalDue    int64            `json:"original_due,omitempty"`
	Interval       uint32           `json:"interval"`
	EaseFactor     uint16           `json:"ease_factor"`
	Reps           uint32           `json:"reps"`
	Lapses         uint32           `json:"lapses"`
	RemainingSteps uint32           `json:"remaining_steps"`
	OriginalPos    *uint32          `json:"original_position,omitempty"`
	MemoryState    *FsrsMemoryState `json:"memory_state,omitempty"`
	CustomData     string           `json:"custom_data,omitempty"`
}

// Ease returns the stored ease factor as a multiplier.
func (c *Card) Ease() float32 {
	return float32(c.EaseFactor) / 1000
}

func (c *Card) InFilteredDeck() bool {
	return c.OriginalDeckID != 0
}

// HomeDeckID is the deck whose config governs the card.
func (c *Card) HomeDeckID() DeckID {
	if c.OriginalDeckID != 0 {
		return c.OriginalDeckID
	}
	return c.DeckID
}

func (c *Card) IsIntradayLearning() bool {
	return c.Queue == QueueLearn || c.Queue == QueuePreview
}

// Clone returns a deep copy.
func (c Card) Clone() Card {
	if c.MemoryState != nil {
		m := *c.MemoryState
		c.MemoryState = &m
	}
	if c.OriginalPos != nil {
		p := *c.OriginalPos
		c.OriginalPos = &p
	}
	return c
}

// RestoreQueueFromType puts a buried or suspended card back into the queue
// implied by its type.
func (c *Card) RestoreQueueFromType() {
	switch c.Type {
	case CardTypeNew:
		c.Queue = QueueNew
	case CardTypeLearn, CardTypeRelearn:
		if c.Due > learnDueCutoff {
			c.Queue = QueueLearn
		} else {
			c.Queue = QueueDayLearn
		}
	case CardTypeReview:
		c.Queue = QueueReview
	}
}

// RemoveFromFilteredDeckBeforeReschedule moves the card home without
// touching its due; the caller is about to set a new one.
func (c *Card) RemoveFromFilteredDeckBeforeReschedule() {
	if c.OriginalDeckID == 0 {
		return
	}
	c.DeckID = c.OriginalDeckID
	c.OriginalDeckID = 0
	c.OriginalDue = 0
}

// RemoveFromFilteredDeckRestoringQueue moves the card home and restores
// the due it had before it was pulled into the filtered deck.
func (c *Card) RemoveFromFilteredDeckRestoringQueue() {
	if c.OriginalDeckID == 0 {
		return
	}
	c.DeckID = c.OriginalDeckID
	c.OriginalDeckID = 0
	if c.OriginalDue != 0 {
		c.Due = c.OriginalDue
		c.OriginalDue = 0
	}
	c.RestoreQueueFromType()
}
