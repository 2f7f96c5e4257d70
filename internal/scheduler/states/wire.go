package states

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/domino14/srs_scheduler/internal/model"
)

// The wire form follows the SchedulingState protobuf message, so clients
// holding generated code for that message can read it. Zero values are
// omitted as in proto3, and unknown fields are skipped.

var ErrMalformedState = errors.New("malformed card state")

// Marshal encodes a state in its protobuf wire form.
func Marshal(s CardState) []byte {
	var b []byte
	switch st := s.(type) {
	case NormalState:
		b = appendMessage(b, 1, appendNormal(nil, st))
	case FilteredState:
		b = appendMessage(b, 2, appendFiltered(nil, st))
	}
	return b
}

// Unmarshal decodes a state produced by Marshal.
func Unmarshal(b []byte) (CardState, error) {
	var state CardState
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch num {
		case 1:
			msg, n, err := readBytes(typ, b)
			if err != nil {
				return 0, true, err
			}
			normal, err := unmarshalNormal(msg)
			state = normal
			return n, true, err
		case 2:
			msg, n, err := readBytes(typ, b)
			if err != nil {
				return 0, true, err
			}
			filtered, err := unmarshalFiltered(msg)
			state = filtered
			return n, true, err
		}
		return 0, false, nil
	})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: no state set", ErrMalformedState)
	}
	return state, nil
}

func appendNormal(b []byte, s NormalState) []byte {
	switch st := s.(type) {
	case NewState:
		b = appendMessage(b, 1, appendUint(nil, 1, st.Position))
	case LearnState:
		b = appendMessage(b, 2, appendLearn(nil, st))
	case ReviewState:
		b = appendMessage(b, 3, appendReview(nil, st))
	case RelearnState:
		var inner []byte
		inner = appendMessage(inner, 1, appendLearn(nil, st.Learning))
		inner = appendMessage(inner, 2, appendReview(nil, st.Review))
		b = appendMessage(b, 4, inner)
	}
	return b
}

func appendFiltered(b []byte, s FilteredState) []byte {
	switch st := s.(type) {
	case PreviewState:
		var inner []byte
		inner = appendUint(inner, 1, st.ScheduledSecs)
		inner = appendBool(inner, 2, st.Finished)
		b = appendMessage(b, 1, inner)
	case ReschedulingFilterState:
		var inner []byte
		if st.OriginalState != nil {
			inner = appendMessage(inner, 1, appendNormal(nil, st.OriginalState))
		}
		b = appendMessage(b, 2, inner)
	}
	return b
}

func appendLearn(b []byte, s LearnState) []byte {
	b = appendUint(b, 1, s.RemainingSteps)
	b = appendUint(b, 2, s.ScheduledSecs)
	if s.MemoryState != nil {
		b = appendMessage(b, 6, appendMemory(nil, *s.MemoryState))
	}
	return b
}

func appendReview(b []byte, s ReviewState) []byte {
	b = appendUint(b, 1, s.ScheduledDays)
	b = appendUint(b, 2, s.ElapsedDays)
	b = appendFloat(b, 3, s.EaseFactor)
	b = appendUint(b, 4, s.Lapses)
	b = appendBool(b, 5, s.Leeched)
	if s.MemoryState != nil {
		b = appendMessage(b, 6, appendMemory(nil, *s.MemoryState))
	}
	return b
}

func appendMemory(b []byte, m model.FsrsMemoryState) []byte {
	b = appendFloat(b, 1, m.Stability)
	b = appendFloat(b, 2, m.Difficulty)
	return b
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendUint(b []byte, num protowire.Number, v uint32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

func unmarshalNormal(b []byte) (NormalState, error) {
	var state NormalState
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num < 1 || num > 4 {
			return 0, false, nil
		}
		msg, n, err := readBytes(typ, b)
		if err != nil {
			return 0, true, err
		}
		switch num {
		case 1:
			var s NewState
			err = walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
				if num != 1 {
					return 0, false, nil
				}
				v, n, err := readVarint(typ, b)
				s.Position = uint32(v)
				return n, true, err
			})
			state = s
		case 2:
			state, err = unmarshalLearn(msg)
		case 3:
			state, err = unmarshalReview(msg)
		case 4:
			var s RelearnState
			err = walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
				if num != 1 && num != 2 {
					return 0, false, nil
				}
				inner, n, err := readBytes(typ, b)
				if err != nil {
					return 0, true, err
				}
				if num == 1 {
					s.Learning, err = unmarshalLearn(inner)
				} else {
					s.Review, err = unmarshalReview(inner)
				}
				return n, true, err
			})
			state = s
		}
		return n, true, err
	})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: no normal state set", ErrMalformedState)
	}
	return state, nil
}

func unmarshalFiltered(b []byte) (FilteredState, error) {
	var state FilteredState
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num != 1 && num != 2 {
			return 0, false, nil
		}
		msg, n, err := readBytes(typ, b)
		if err != nil {
			return 0, true, err
		}
		if num == 1 {
			var s PreviewState
			err = walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
				if num != 1 && num != 2 {
					return 0, false, nil
				}
				v, n, err := readVarint(typ, b)
				if num == 1 {
					s.ScheduledSecs = uint32(v)
				} else {
					s.Finished = protowire.DecodeBool(v)
				}
				return n, true, err
			})
			state = s
			return n, true, err
		}
		var s ReschedulingFilterState
		err = walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
			if num != 1 {
				return 0, false, nil
			}
			inner, n, err := readBytes(typ, b)
			if err != nil {
				return 0, true, err
			}
			s.OriginalState, err = unmarshalNormal(inner)
			return n, true, err
		})
		if err == nil && s.OriginalState == nil {
			err = fmt.Errorf("%w: rescheduling state without original", ErrMalformedState)
		}
		state = s
		return n, true, err
	})
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("%w: no filtered state set", ErrMalformedState)
	}
	return state, nil
}

func unmarshalLearn(b []byte) (LearnState, error) {
	var s LearnState
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch num {
		case 1, 2:
			v, n, err := readVarint(typ, b)
			if num == 1 {
				s.RemainingSteps = uint32(v)
			} else {
				s.ScheduledSecs = uint32(v)
			}
			return n, true, err
		case 6:
			m, n, err := readMemory(typ, b)
			s.MemoryState = m
			return n, true, err
		}
		return 0, false, nil
	})
	return s, err
}

func unmarshalReview(b []byte) (ReviewState, error) {
	var s ReviewState
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		switch num {
		case 1, 2, 4, 5:
			v, n, err := readVarint(typ, b)
			switch num {
			case 1:
				s.ScheduledDays = uint32(v)
			case 2:
				s.ElapsedDays = uint32(v)
			case 4:
				s.Lapses = uint32(v)
			case 5:
				s.Leeched = protowire.DecodeBool(v)
			}
			return n, true, err
		case 3:
			f, n, err := readFloat(typ, b)
			s.EaseFactor = f
			return n, true, err
		case 6:
			m, n, err := readMemory(typ, b)
			s.MemoryState = m
			return n, true, err
		}
		return 0, false, nil
	})
	return s, err
}

func readMemory(typ protowire.Type, b []byte) (*model.FsrsMemoryState, int, error) {
	msg, n, err := readBytes(typ, b)
	if err != nil {
		return nil, 0, err
	}
	var m model.FsrsMemoryState
	err = walkFields(msg, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool, error) {
		if num != 1 && num != 2 {
			return 0, false, nil
		}
		f, n, err := readFloat(typ, b)
		if num == 1 {
			m.Stability = f
		} else {
			m.Difficulty = f
		}
		return n, true, err
	})
	return &m, n, err
}

type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (n int, handled bool, err error)

// walkFields calls f for each field in b. Fields f does not handle are
// skipped.
func walkFields(b []byte, f fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %w", ErrMalformedState, protowire.ParseError(n))
		}
		b = b[n:]
		m, handled, err := f(num, typ, b)
		if err != nil {
			return err
		}
		if !handled {
			m = protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return fmt.Errorf("%w: %w", ErrMalformedState, protowire.ParseError(m))
			}
		}
		b = b[m:]
	}
	return nil
}

func readVarint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, fmt.Errorf("%w: wire type %d, want varint", ErrMalformedState, typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: %w", ErrMalformedState, protowire.ParseError(n))
	}
	return v, n, nil
}

func readBytes(typ protowire.Type, b []byte) ([]byte, int, error) {
	if typ != protowire.BytesType {
		return nil, 0, fmt.Errorf("%w: wire type %d, want bytes", ErrMalformedState, typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, fmt.Errorf("%w: %w", ErrMalformedState, protowire.ParseError(n))
	}
	return v, n, nil
}

func readFloat(typ protowire.Type, b []byte) (float32, int, error) {
	if typ != protowire.Fixed32Type {
		return 0, 0, fmt.Errorf("%w: wire type %d, want fixed32", ErrMalformedState, typ)
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: %w", ErrMalformedState, protowire.ParseError(n))
	}
	return math.Float32frombits(v), n, nil
}
