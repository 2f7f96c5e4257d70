package collection

import (
	"context"
	"time"

	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/queue"
)

// DefaultUndoLimit is how many steps are kept on the undo stack.
const DefaultUndoLimit = 30

// ChangeKind is what happened to an entity. The stored value is the
// entity's state from before the change, except for Added, which holds the
// new row so it can be removed again.
type ChangeKind uint8

const (
	Added ChangeKind = iota
	Updated
	Removed
)

// UndoableChange is one reversible mutation. Undoing a change applies the
// stored pre-image and records the inverse change, so the same machinery
// serves redo.
type UndoableChange interface {
	undo(ctx context.Context, c *Collection) error
	isUndoableChange()
}

type CardChange struct {
	Kind ChangeKind
	Card model.Card
}

type NoteChange struct {
	Kind ChangeKind
	Note model.Note
}

type DeckChange struct {
	Kind ChangeKind
	Deck model.Deck
}

type DeckConfigChange struct {
	Kind   ChangeKind
	Config model.DeckConfig
}

type TagChange struct {
	Kind ChangeKind
	Tag  string
}

type RevlogChange struct {
	Kind  ChangeKind
	Entry model.RevlogEntry
}

// ConfigChange holds a config key's previous raw value. A nil Value means
// the key did not exist.
type ConfigChange struct {
	Key   string
	Value []byte
}

// QueueChange records an answer's effect on the built queues. Undone is
// set on the inverse change recorded while undoing.
type QueueChange struct {
	Update *queue.QueueUpdate
	Undone bool
}

func (CardChange) isUndoableChange()       {}
func (NoteChange) isUndoableChange()       {}
func (DeckChange) isUndoableChange()       {}
func (DeckConfigChange) isUndoableChange() {}
func (TagChange) isUndoableChange()        {}
func (RevlogChange) isUndoableChange()     {}
func (ConfigChange) isUndoableChange()     {}
func (QueueChange) isUndoableChange()      {}

type undoMode uint8

const (
	modeNormal undoMode = iota
	modeUndoing
	modeRedoing
)

type undoableOp struct {
	op        Op
	changes   []UndoableChange
	timestamp time.Time
	counter   int
}

func (u *undoableOp) stateChanges() StateChanges {
	var s StateChanges
	for _, ch := range u.changes {
		s.mark(ch)
	}
	return s
}

// mark sets the bit for ch. Revlog and queue changes set none.
func (s *StateChanges) mark(ch UndoableChange) {
	switch ch.(type) {
	case CardChange:
		s.Card = true
	case NoteChange:
		s.Note = true
	case DeckChange:
		s.Deck = true
	case DeckConfigChange:
		s.DeckConfig = true
	case TagChange:
		s.Tag = true
	case ConfigChange:
		s.Config = true
	}
}

// onlyNoteUpdate returns the note id when the step is a single note update.
func (u *undoableOp) onlyNoteUpdate() (model.NoteID, bool) {
	var id model.NoteID
	for _, ch := range u.changes {
		switch c := ch.(type) {
		case NoteChange:
			if c.Kind != Updated || (id != 0 && id != c.Note.ID) {
				return 0, false
			}
			id = c.Note.ID
		case TagChange:
			// registering a new tag may accompany a note update
		default:
			return 0, false
		}
	}
	return id, id != 0
}

// undoManager keeps the undo stack newest first and the redo stack newest
// last.
type undoManager struct {
	limit   int
	undo    []*undoableOp
	redo    []*undoableOp
	mode    undoMode
	current *undoableOp
	counter int
	// touched accumulates across the open step, including steps that are
	// not being recorded.
	touched StateChanges
}

func newUndoManager(limit int) *undoManager {
	if limit <= 0 {
		limit = DefaultUndoLimit
	}
	return &undoManager{limit: limit}
}

func (m *undoManager) beginStep(op Op, now time.Time) {
	m.touched = StateChanges{}
	if op == opSkipUndo {
		m.current = nil
		return
	}
	m.counter++
	m.current = &undoableOp{op: op, timestamp: now, counter: m.counter}
}

func (m *undoManager) record(ch UndoableChange) {
	m.touched.mark(ch)
	if m.current != nil {
		m.current.changes = append(m.current.changes, ch)
	}
}

// endStep files the current step. Empty steps are dropped unless keepEmpty
// is set, which is how custom steps are created.
func (m *undoManager) endStep(keepEmpty bool) {
	step := m.current
	m.current = nil
	if step == nil || (len(step.changes) == 0 && !keepEmpty) {
		return
	}
	switch m.mode {
	case modeUndoing:
		m.redo = append(m.redo, step)
		return
	case modeNormal:
		m.redo = nil
		if m.coalesce(step) {
			return
		}
	}
	m.undo = append([]*undoableOp{step}, m.undo...)
	if len(m.undo) > m.limit {
		m.undo = m.undo[:m.limit]
	}
}

// coalesce drops step when it repeats an edit of the same note as the
// previous step, whose pre-image is the one worth keeping.
func (m *undoManager) coalesce(step *undoableOp) bool {
	if step.op != OpUpdateNote || len(m.undo) == 0 {
		return false
	}
	prev := m.undo[0]
	if prev.op != OpUpdateNote {
		return false
	}
	prevID, ok := prev.onlyNoteUpdate()
	if !ok {
		return false
	}
	id, ok := step.onlyNoteUpdate()
	if !ok || id != prevID {
		return false
	}
	for _, ch := range step.changes {
		if _, isTag := ch.(TagChange); isTag {
			prev.changes = append(prev.changes, ch)
		}
	}
	return true
}

func (m *undoManager) discardStep() {
	m.current = nil
}

func (m *undoManager) clear() {
	m.undo = nil
	m.redo = nil
	m.current = nil
}

func (m *undoManager) status() UndoStatus {
	var s UndoStatus
	if len(m.undo) > 0 {
		s.Undo = string(m.undo[0].op)
	}
	if len(m.redo) > 0 {
		s.Redo = string(m.redo[len(m.redo)-1].op)
	}
	s.LastStep = m.counter
	return s
}

func (m *undoManager) popUndo() *undoableOp {
	if len(m.undo) == 0 {
		return nil
	}
	step := m.undo[0]
	m.undo = m.undo[1:]
	return step
}

func (m *undoManager) popRedo() *undoableOp {
	if len(m.redo) == 0 {
		return nil
	}
	step := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	return step
}

// restore puts back a step whose undo or redo failed.
func (m *undoManager) restore(step *undoableOp, wasRedo bool) {
	if wasRedo {
		m.redo = append(m.redo, step)
	} else {
		m.undo = append([]*undoableOp{step}, m.undo...)
	}
}

// mergeSince folds every step newer than the one numbered counter into it.
func (m *undoManager) mergeSince(counter int) (*undoableOp, bool) {
	idx := -1
	for i, s := range m.undo {
		if s.counter == counter {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	target := m.undo[idx]
	for i := idx - 1; i >= 0; i-- {
		target.changes = append(target.changes, m.undo[i].changes...)
	}
	m.undo = m.undo[idx:]
	return target, true
}
