package queue

import (
	"github.com/domino14/srs_scheduler/internal/model"
)

// sizedIter is an iterator that knows how many items it has left.
type sizedIter[T any] interface {
	Next() (T, bool)
	Len() int
}

type sliceIter[T any] struct {
	items []T
}

func (it *sliceIter[T]) Next() (T, bool) {
	var zero T
	if len(it.items) == 0 {
		return zero, false
	}
	v := it.items[0]
	it.items = it.items[1:]
	return v, true
}

func (it *sliceIter[T]) Len() int { return len(it.items) }

func iterOf[T any](items []T) sizedIter[T] {
	return &sliceIter[T]{items: items}
}

// sizedChain yields everything from one, then everything from two.
type sizedChain[T any] struct {
	one, two sizedIter[T]
}

func (c *sizedChain[T]) Next() (T, bool) {
	if v, ok := c.one.Next(); ok {
		return v, true
	}
	return c.two.Next()
}

func (c *sizedChain[T]) Len() int { return c.one.Len() + c.two.Len() }

// intersperser spreads the items of two evenly through one, keeping the
// order within each.
type intersperser[T any] struct {
	one, two sizedIter[T]
	ratio    float64
	oneIdx   int
	twoIdx   int
}

func newIntersperser[T any](one, two sizedIter[T]) *intersperser[T] {
	return &intersperser[T]{
		one:   one,
		two:   two,
		ratio: float64(one.Len()+1) / float64(two.Len()+1),
	}
}

func (it *intersperser[T]) nextOne() (T, bool) {
	it.oneIdx++
	return it.one.Next()
}

func (it *intersperser[T]) nextTwo() (T, bool) {
	it.twoIdx++
	return it.two.Next()
}

func (it *intersperser[T]) Next() (T, bool) {
	switch {
	case it.one.Len() == 0:
		return it.nextTwo()
	case it.two.Len() == 0:
		return it.nextOne()
	case float64(it.twoIdx+1)*it.ratio < float64(it.oneIdx+1):
		return it.nextTwo()
	}
	return it.nextOne()
}

func (it *intersperser[T]) Len() int { return it.one.Len() + it.two.Len() }

// mix merges extra into base according to the configured mix.
func mix[T any](base, extra sizedIter[T], m model.ReviewMix) sizedIter[T] {
	switch m {
	case model.ReviewMixAfterReviews:
		return &sizedChain[T]{one: base, two: extra}
	case model.ReviewMixBeforeReviews:
		return &sizedChain[T]{one: extra, two: base}
	}
	return newIntersperser(base, extra)
}

func collect[T any](it sizedIter[T]) []T {
	out := make([]T, 0, it.Len())
	for {
		v, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}
