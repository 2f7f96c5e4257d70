package states

import "fmt"

const secsPerDay = 86_400

// IntervalKind is a delay in either seconds or days. Exactly one of the two
// constructors should be used to build one.
type IntervalKind struct {
	secs   uint32
	days   uint32
	inDays bool
}

func InSecs(secs uint32) IntervalKind { return IntervalKind{secs: secs} }
func InDays(days uint32) IntervalKind { return IntervalKind{days: days, inDays: true} }

func (k IntervalKind) IsDays() bool { return k.inDays }

// Secs returns the seconds of an InSecs interval.
func (k IntervalKind) Secs() uint32 { return k.secs }

// Days returns the days of an InDays interval.
func (k IntervalKind) Days() uint32 { return k.days }

// MaybeAsDays converts a seconds interval that would cross the next day
// rollover into days.
func (k IntervalKind) MaybeAsDays(secsUntilRollover uint32) IntervalKind {
	if k.inDays || k.secs < secsUntilRollover {
		return k
	}
	return InDays((k.secs-secsUntilRollover)/secsPerDay + 1)
}

func (k IntervalKind) AsSeconds() uint32 {
	if k.inDays {
		return k.days * secsPerDay
	}
	return k.secs
}

// AsRevlogInterval encodes days as positive and seconds as negative.
func (k IntervalKind) AsRevlogInterval() int32 {
	if k.inDays {
		return int32(k.days)
	}
	return -int32(k.secs)
}

// String renders the interval the way answer buttons show it.
func (k IntervalKind) String() string {
	if k.inDays {
		switch {
		case k.days < 30:
			return fmt.Sprintf("%dd", k.days)
		case k.days < 365:
			return fmt.Sprintf("%.1fmo", float32(k.days)/30)
		}
		return fmt.Sprintf("%.1fy", float32(k.days)/365)
	}
	switch {
	case k.secs < 60:
		return fmt.Sprintf("%ds", k.secs)
	case k.secs < 3600:
		return fmt.Sprintf("%dm", k.secs/60)
	case k.secs < secsPerDay:
		return fmt.Sprintf("%dh", k.secs/3600)
	}
	return fmt.Sprintf("%dd", k.secs/secsPerDay)
}
