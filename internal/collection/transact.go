package collection

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/errs"
)

// transact runs f in a storage transaction, recording its changes as an
// undo step named op. If f fails, storage is rolled back, the step is
// discarded and the study queues and caches are dropped; the undo and redo
// stacks are left alone.
func transact[T any](ctx context.Context, c *Collection, op Op, f func(context.Context) (T, error)) (OpOutput[T], error) {
	var zero OpOutput[T]
	if c.inTransaction || c.storage.InTransaction() {
		return zero, errs.InvalidInput("transaction already open")
	}
	if err := c.storage.Begin(ctx); err != nil {
		return zero, errs.DB(err)
	}
	c.inTransaction = true
	defer func() { c.inTransaction = false }()

	c.undo.beginStep(op, c.now())
	out, err := f(ctx)
	changes := OpChanges{Op: op, Changes: c.undo.touched}
	if err == nil {
		// Caches are dropped before commit so nothing can read stale entries
		// once the new rows are visible.
		if changes.Changes.Deck || changes.Changes.DeckConfig {
			c.clearCaches()
		}
		err = errs.DB(c.storage.Commit(ctx))
	}
	if err != nil {
		if rerr := c.storage.Rollback(ctx); rerr != nil {
			log.Ctx(ctx).Err(rerr).Str("op", string(op)).Msg("rollback-failed")
		}
		c.undo.discardStep()
		c.clearQueues()
		c.clearCaches()
		return zero, err
	}

	if op == opSkipUndo {
		c.undo.clear()
	} else {
		c.undo.endStep(false)
	}
	if changes.RequiresStudyQueueRebuild() {
		c.clearQueues()
	}
	return OpOutput[T]{Output: out, Changes: changes}, nil
}

// Transact runs f as one undoable operation.
func (c *Collection) Transact(ctx context.Context, op Op, f func(context.Context) error) (OpChanges, error) {
	if op == opSkipUndo {
		return OpChanges{}, errs.InvalidInput("operation needs a name")
	}
	out, err := transact(ctx, c, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f(ctx)
	})
	return out.Changes, err
}

// TransactNoUndo runs f without recording it. Since the earlier undo steps
// may no longer apply cleanly afterwards, both stacks are cleared.
func (c *Collection) TransactNoUndo(ctx context.Context, f func(context.Context) error) (OpChanges, error) {
	out, err := transact(ctx, c, opSkipUndo, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, f(ctx)
	})
	return out.Changes, err
}

// UndoStatus names the operations Undo and Redo would reverse.
func (c *Collection) UndoStatus() UndoStatus {
	return c.undo.status()
}

func (c *Collection) Undo(ctx context.Context) (OpChangesAfterUndo, error) {
	step := c.undo.popUndo()
	if step == nil {
		return OpChangesAfterUndo{}, errs.ErrUndoEmpty
	}
	return c.applyStep(ctx, step, modeUndoing)
}

func (c *Collection) Redo(ctx context.Context) (OpChangesAfterUndo, error) {
	step := c.undo.popRedo()
	if step == nil {
		return OpChangesAfterUndo{}, errs.ErrUndoEmpty
	}
	return c.applyStep(ctx, step, modeRedoing)
}

// applyStep reverses step's changes newest first. The inverse changes are
// recorded as a new step on the opposite stack.
func (c *Collection) applyStep(ctx context.Context, step *undoableOp, mode undoMode) (OpChangesAfterUndo, error) {
	c.undo.mode = mode
	out, err := transact(ctx, c, step.op, func(ctx context.Context) (struct{}, error) {
		for i := len(step.changes) - 1; i >= 0; i-- {
			if err := step.changes[i].undo(ctx, c); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	c.undo.mode = modeNormal
	if err != nil {
		c.undo.restore(step, mode == modeRedoing)
		return OpChangesAfterUndo{}, err
	}
	log.Ctx(ctx).Debug().Str("op", string(step.op)).Bool("redo", mode == modeRedoing).
		Int("changes", len(step.changes)).Msg("undo-applied")
	return OpChangesAfterUndo{
		Changes:   out.Changes,
		Operation: string(step.op),
		NewStatus: c.undo.status(),
		Counter:   step.counter,
	}, nil
}

// AddCustomUndoStep opens an empty named step that later operations can be
// folded into with MergeUndoableOps. It returns the step's number.
func (c *Collection) AddCustomUndoStep(name string) int {
	c.undo.beginStep(Op(name), c.now())
	c.undo.endStep(true)
	return c.undo.counter
}

// MergeUndoableOps folds every step made after the numbered one into it,
// so they are undone together.
func (c *Collection) MergeUndoableOps(step int) (OpChanges, error) {
	target, ok := c.undo.mergeSince(step)
	if !ok {
		return OpChanges{}, errs.InvalidInput("undo step %d not found", step)
	}
	return OpChanges{Op: target.op, Changes: target.stateChanges()}, nil
}
