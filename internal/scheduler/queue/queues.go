package queue

import (
	"slices"
	"time"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
)

type Counts struct {
	New      int `json:"new"`
	Learning int `json:"learning"`
	Review   int `json:"review"`
}

// CardQueues are the built queues of one deck for one day. The learning
// count covers intraday cards due before the learn-ahead cutoff and all
// interday learning cards.
type CardQueues struct {
	counts Counts
	// main is a deque; its front is main[0].
	main []MainEntry
	// learning is sorted by due.
	learning []LearningEntry

	cutoff         int64
	learnAheadSecs int64
	buildTime      time.Time
	today          uint32
}

// CutoffSnapshot is what UpdateLearningCutoff changed, for undo.
type CutoffSnapshot struct {
	LearningCount int
	Cutoff        int64
}

// QueueUpdate records the queue side of answering a card.
type QueueUpdate struct {
	Entry           Entry
	LearningRequeue *LearningEntry
	BuildTime       time.Time
	Snapshot        CutoffSnapshot
}

func (q *CardQueues) Counts() Counts       { return q.counts }
func (q *CardQueues) BuildTime() time.Time { return q.buildTime }
func (q *CardQueues) Today() uint32        { return q.today }

func (q *CardQueues) learnAheadCutoff() int64 {
	return q.cutoff + q.learnAheadSecs
}

func (q *CardQueues) learningDueBefore(cutoff int64) int {
	n := 0
	for _, e := range q.learning {
		if e.Due > cutoff {
			break
		}
		n++
	}
	return n
}

// Iter returns entries in study order: learning cards that are due, then
// the main queue, then learning cards within the learn-ahead window.
func (q *CardQueues) Iter(intradayOnly bool) []Entry {
	var out []Entry
	i := 0
	for ; i < len(q.learning) && q.learning[i].Due <= q.cutoff; i++ {
		out = append(out, q.learning[i])
	}
	if !intradayOnly {
		for _, e := range q.main {
			out = append(out, e)
		}
	}
	ahead := q.learnAheadCutoff()
	for ; i < len(q.learning) && q.learning[i].Due <= ahead; i++ {
		out = append(out, q.learning[i])
	}
	return out
}

// Entries is the number of entries in all queues.
func (q *CardQueues) Entries() int {
	return len(q.main) + len(q.learning)
}

// PopAnswered removes the answered card, which must be at the front of
// the learning or main queue.
func (q *CardQueues) PopAnswered(id model.CardID) (Entry, error) {
	if len(q.learning) > 0 && q.learning[0].ID == id {
		e := q.learning[0]
		q.learning = q.learning[1:]
		q.counts.Learning = max(q.counts.Learning-1, 0)
		return e, nil
	}
	if len(q.main) > 0 && q.main[0].ID == id {
		e := q.main[0]
		q.main = q.main[1:]
		q.adjustMainCount(e.Kind, -1)
		return e, nil
	}
	return nil, errs.InvalidInput("card %d is not at top of queue", id)
}

func (q *CardQueues) adjustMainCount(kind MainEntryKind, delta int) {
	switch kind {
	case KindNew:
		q.counts.New = max(q.counts.New+delta, 0)
	case KindReview:
		q.counts.Review = max(q.counts.Review+delta, 0)
	case KindInterdayLearning:
		q.counts.Learning = max(q.counts.Learning+delta, 0)
	}
}

// RequeueLearning puts a card that is still in intraday learning back in
// the queue. When nothing else is left to study, a card that would be
// shown again straight away is moved behind the next learning card.
func (q *CardQueues) RequeueLearning(e LearningEntry) LearningEntry {
	cutoff := q.learnAheadCutoff()
	if e.Due <= cutoff && len(q.main) == 0 && len(q.learning) > 0 {
		next := q.learning[0]
		if next.Due >= e.Due && next.Due < cutoff {
			e.Due = next.Due + 1
		}
	}
	q.insertLearning(e, false)
	return e
}

// insertLearning keeps the learning queue sorted. Entries go after others
// with the same due, or before them when front is set.
func (q *CardQueues) insertLearning(e LearningEntry, front bool) {
	idx, _ := slices.BinarySearchFunc(q.learning, e.Due, func(x LearningEntry, due int64) int {
		if x.Due < due || (!front && x.Due == due) {
			return -1
		}
		return 1
	})
	q.learning = slices.Insert(q.learning, idx, e)
	if e.Due <= q.learnAheadCutoff() {
		q.counts.Learning++
	}
}

func (q *CardQueues) removeLearning(id model.CardID) {
	idx := slices.IndexFunc(q.learning, func(e LearningEntry) bool { return e.ID == id })
	if idx < 0 {
		return
	}
	if q.learning[idx].Due <= q.learnAheadCutoff() {
		q.counts.Learning = max(q.counts.Learning-1, 0)
	}
	q.learning = slices.Delete(q.learning, idx, idx+1)
}

// UpdateLearningCutoff moves the cutoff to now, counting learning cards
// that have come inside the learn-ahead window.
func (q *CardQueues) UpdateLearningCutoff(now time.Time) CutoffSnapshot {
	snap := CutoffSnapshot{LearningCount: q.counts.Learning, Cutoff: q.cutoff}
	lastAhead := q.learnAheadCutoff()
	q.cutoff = max(now.Unix(), q.cutoff)
	newAhead := q.learnAheadCutoff()
	for _, e := range q.learning {
		if e.Due > newAhead {
			break
		}
		if e.Due > lastAhead {
			q.counts.Learning++
		}
	}
	return snap
}

func (q *CardQueues) restoreCutoff(s CutoffSnapshot) {
	q.counts.Learning = s.LearningCount
	q.cutoff = s.Cutoff
}

// AnswerCard updates the queues after a card was answered. requeue is the
// card's new learning entry when it is still in intraday learning.
func (q *CardQueues) AnswerCard(id model.CardID, requeue *LearningEntry, now time.Time) (*QueueUpdate, error) {
	entry, err := q.PopAnswered(id)
	if err != nil {
		return nil, err
	}
	upd := &QueueUpdate{Entry: entry, BuildTime: q.buildTime}
	if requeue != nil {
		e := q.RequeueLearning(*requeue)
		upd.LearningRequeue = &e
	}
	upd.Snapshot = q.UpdateLearningCutoff(now)
	return upd, nil
}

// Undo reverses an update made by AnswerCard.
func (q *CardQueues) Undo(u *QueueUpdate) {
	q.restoreCutoff(u.Snapshot)
	if u.LearningRequeue != nil {
		q.removeLearning(u.LearningRequeue.ID)
	}
	switch e := u.Entry.(type) {
	case LearningEntry:
		q.insertLearning(e, true)
	case MainEntry:
		q.main = slices.Insert(q.main, 0, e)
		q.adjustMainCount(e.Kind, 1)
	}
}

// Redo applies an undone update again.
func (q *CardQueues) Redo(u *QueueUpdate, now time.Time) error {
	if _, err := q.PopAnswered(u.Entry.CardID()); err != nil {
		return err
	}
	if u.LearningRequeue != nil {
		q.insertLearning(*u.LearningRequeue, false)
	}
	u.Snapshot = q.UpdateLearningCutoff(now)
	return nil
}
