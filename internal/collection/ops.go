package collection

// Op names a user-visible operation. The name is shown in undo menus.
// Any other string may be used for custom undo steps.
type Op string

const (
	OpAnswerCard         Op = "Answer Card"
	OpAddDeck            Op = "Add Deck"
	OpBuildFilteredDeck  Op = "Build Filtered Deck"
	OpEmptyFilteredDeck  Op = "Empty Filtered Deck"
	OpUpdateDeck         Op = "Update Deck"
	OpSetCurrentDeck     Op = "Set Current Deck"
	OpUpdateDeckConfig   Op = "Update Deck Options"
	OpAddNote            Op = "Add Note"
	OpUpdateNote         Op = "Update Note"
	OpBury               Op = "Bury"
	OpSuspend            Op = "Suspend"
	OpUnbury             Op = "Unbury"
	opSkipUndo           Op = ""
)

// StateChanges says which kinds of entity an operation touched.
type StateChanges struct {
	Card       bool `json:"card"`
	Note       bool `json:"note"`
	Deck       bool `json:"deck"`
	Tag        bool `json:"tag"`
	Notetype   bool `json:"notetype"`
	Config     bool `json:"config"`
	DeckConfig bool `json:"deck_config"`
}

func (s StateChanges) Any() bool {
	return s.Card || s.Note || s.Deck || s.Tag || s.Notetype || s.Config || s.DeckConfig
}

type OpChanges struct {
	Op      Op           `json:"op"`
	Changes StateChanges `json:"changes"`
}

// RequiresStudyQueueRebuild reports whether built queues may now be stale.
// Answering keeps the queues up to date itself.
func (o OpChanges) RequiresStudyQueueRebuild() bool {
	if o.Op == OpAnswerCard {
		return false
	}
	c := o.Changes
	return c.Card || c.Deck || c.DeckConfig || (c.Config && o.Op == OpSetCurrentDeck)
}

// OpOutput pairs an operation's result with what it changed.
type OpOutput[T any] struct {
	Output  T
	Changes OpChanges
}

type UndoStatus struct {
	Undo     string `json:"undo"`
	Redo     string `json:"redo"`
	LastStep int    `json:"last_step"`
}

type OpChangesAfterUndo struct {
	Changes   OpChanges  `json:"changes"`
	Operation string     `json:"operation"`
	NewStatus UndoStatus `json:"new_status"`
	Counter   int        `json:"counter"`
}
