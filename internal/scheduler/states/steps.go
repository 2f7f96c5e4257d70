package states

// LearningSteps are step delays in minutes.
//
// A card's remaining-steps value may carry a legacy "today" counter in its
// thousands; only the low three digits take part in index lookups.
type LearningSteps []float32

func toSecs(mins float32) uint32 {
	return uint32(mins * 60)
}

func (s LearningSteps) secsAtIndex(idx int) (uint32, bool) {
	if idx < 0 || idx >= len(s) {
		return 0, false
	}
	return toSecs(s[idx]), true
}

func (s LearningSteps) index(remaining uint32) int {
	total := len(s)
	if total == 0 {
		return 0
	}
	idx := total - int(remaining%1000)
	return min(max(idx, 0), total-1)
}

// AgainDelaySecsLearn is false when there are no steps, in which case the
// card graduates instead.
func (s LearningSteps) AgainDelaySecsLearn() (uint32, bool) {
	return s.secsAtIndex(0)
}

func (s LearningSteps) AgainDelaySecsRelearn() (uint32, bool) {
	return s.secsAtIndex(0)
}

// HardDelaySecs averages the current and next steps. A lone step is
// doubled, and the last of several steps is repeated.
func (s LearningSteps) HardDelaySecs(remaining uint32) (uint32, bool) {
	idx := s.index(remaining)
	current, ok := s.secsAtIndex(idx)
	if !ok {
		return 0, false
	}
	if next, ok := s.secsAtIndex(idx + 1); ok {
		return (current + next) / 2, true
	}
	if len(s) == 1 {
		return current * 2, true
	}
	return current, true
}

func (s LearningSteps) GoodDelaySecs(remaining uint32) (uint32, bool) {
	return s.secsAtIndex(s.index(remaining) + 1)
}

func (s LearningSteps) CurrentDelaySecs(remaining uint32) uint32 {
	secs, _ := s.secsAtIndex(s.index(remaining))
	return secs
}

func (s LearningSteps) RemainingForGood(remaining uint32) uint32 {
	return uint32(max(len(s)-(s.index(remaining)+1), 0))
}

func (s LearningSteps) RemainingForFailed() uint32 {
	return uint32(len(s))
}
