package schedserver

import (
	"github.com/domino14/srs_scheduler/internal/collection"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/queue"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
)

// Card states cross the wire in their binary encoding, which JSON carries
// as base64.

type SchedulingStates struct {
	Current []byte `json:"current"`
	Again   []byte `json:"again"`
	Hard    []byte `json:"hard"`
	Good    []byte `json:"good"`
	Easy    []byte `json:"easy"`
}

func encodeStates(s states.SchedulingStates) SchedulingStates {
	return SchedulingStates{
		Current: states.Marshal(s.Current),
		Again:   states.Marshal(s.Again),
		Hard:    states.Marshal(s.Hard),
		Good:    states.Marshal(s.Good),
		Easy:    states.Marshal(s.Easy),
	}
}

type CardRequest struct {
	CardID model.CardID `json:"card_id"`
}

type AnswerCardRequest struct {
	CardID       model.CardID  `json:"card_id"`
	Rating       states.Rating `json:"rating"`
	CurrentState []byte        `json:"current_state"`
	NewState     []byte        `json:"new_state"`
	// AnsweredAtMillis is a unix timestamp; zero means now.
	AnsweredAtMillis  int64  `json:"answered_at_millis"`
	MillisecondsTaken uint32 `json:"milliseconds_taken"`
	CustomData        string `json:"custom_data,omitempty"`
	FromQueue         bool   `json:"from_queue"`
}

type GetQueuedCardsRequest struct {
	FetchLimit           int  `json:"fetch_limit"`
	IntradayLearningOnly bool `json:"intraday_learning_only"`
}

type QueuedCard struct {
	Card           model.Card       `json:"card"`
	Queue          string           `json:"queue"`
	States         SchedulingStates `json:"states"`
	Retrievability float64          `json:"retrievability,omitempty"`
}

type QueuedCards struct {
	Cards  []QueuedCard `json:"cards"`
	Counts queue.Counts `json:"counts"`
}

type Empty struct{}

type OpChanges = collection.OpChanges

type UndoStatus = collection.UndoStatus

type OpChangesAfterUndo = collection.OpChangesAfterUndo
