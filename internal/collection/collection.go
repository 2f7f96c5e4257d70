// Package collection ties storage, scheduling and queues together. Every
// mutation runs inside a transaction that records how to reverse it.
//
// A Collection is not safe for concurrent use, apart from SetAbort.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/errs"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/queue"
	"github.com/domino14/srs_scheduler/internal/scheduler/timing"
	"github.com/domino14/srs_scheduler/internal/stores"
)

// Config keys.
const (
	ConfigCurrentDeck    = "curDeck"
	ConfigCreationTime   = "creationTime"
	ConfigRolloverHour   = "rollover"
	ConfigLearnAheadSecs = "learnAheadSecs"
	ConfigLastUnburied   = "lastUnburied"
	ConfigNextPosition   = "nextPos"

	DefaultLearnAheadSecs = 1200
)

type Options struct {
	Nower       timing.Nower
	UndoLimit   int
	DisableFuzz bool
}

type Collection struct {
	storage stores.Storage
	nower   timing.Nower
	fuzz    bool
	undo    *undoManager
	abort   atomic.Bool

	inTransaction bool
	// unburyChecked is one more than the last day buried cards were
	// released on, or zero.
	unburyChecked uint32

	queues     *queue.CardQueues
	queuesDeck model.DeckID

	deckCache   map[model.DeckID]*model.Deck
	configCache map[model.DeckConfigID]*model.DeckConfig
}

// Open wraps storage, creating the default deck and preset on first use.
func Open(ctx context.Context, storage stores.Storage, opts Options) (*Collection, error) {
	if opts.Nower == nil {
		opts.Nower = timing.RealNower{}
	}
	c := &Collection{
		storage:     storage,
		nower:       opts.Nower,
		fuzz:        !opts.DisableFuzz,
		undo:        newUndoManager(opts.UndoLimit),
		deckCache:   map[model.DeckID]*model.Deck{},
		configCache: map[model.DeckConfigID]*model.DeckConfig{},
	}
	if err := c.initialize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Collection) initialize(ctx context.Context) error {
	created, err := c.rawConfig(ctx, ConfigCreationTime)
	if err != nil || created != nil {
		return err
	}
	_, err = c.TransactNoUndo(ctx, func(ctx context.Context) error {
		usn, err := c.storage.Usn(ctx)
		if err != nil {
			return err
		}
		if err := setJSON(ctx, c, ConfigCreationTime, c.now().Unix()); err != nil {
			return err
		}
		if _, err := c.storage.GetDeckConfig(ctx, model.DefaultDeckConfigID); errors.Is(err, errs.ErrNotFound) {
			cfg := model.DefaultDeckConfig()
			if err := c.addDeckConfig(ctx, &cfg, usn); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		if _, err := c.storage.GetDeck(ctx, model.DefaultDeckID); errors.Is(err, errs.ErrNotFound) {
			deck := model.Deck{ID: model.DefaultDeckID, Name: "Default", ConfigID: model.DefaultDeckConfigID}
			if err := c.addDeck(ctx, &deck, usn); err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		return setJSON(ctx, c, ConfigCurrentDeck, model.DefaultDeckID)
	})
	if err == nil {
		log.Info().Msg("collection-created")
	}
	return err
}

func (c *Collection) Close() error {
	return c.storage.Close()
}

// Storage exposes the backend for read-only use by callers.
func (c *Collection) Storage() stores.Storage {
	return c.storage
}

func (c *Collection) now() time.Time {
	return c.nower.Now()
}

// SetAbort asks the running operation to stop at its next safe point. It
// may be called from any goroutine.
func (c *Collection) SetAbort() {
	c.abort.Store(true)
}

func (c *Collection) checkAbort() error {
	if c.abort.Swap(false) {
		return errs.ErrInterrupted
	}
	return nil
}

func getJSON[T any](ctx context.Context, c *Collection, key string, def T) (T, error) {
	raw, err := c.rawConfig(ctx, key)
	if err != nil || raw == nil {
		return def, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, errs.InvalidInput("config %q: %v", key, err)
	}
	return v, nil
}

func setJSON(ctx context.Context, c *Collection, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.setConfig(ctx, key, raw)
}

// TimingToday works out the current scheduling day.
func (c *Collection) TimingToday(ctx context.Context) (timing.SchedTimingToday, error) {
	created, err := getJSON[int64](ctx, c, ConfigCreationTime, 0)
	if err != nil {
		return timing.SchedTimingToday{}, err
	}
	rollover, err := getJSON(ctx, c, ConfigRolloverHour, timing.DefaultRolloverHour)
	if err != nil {
		return timing.SchedTimingToday{}, err
	}
	now := c.now()
	return timing.Today(now, time.Unix(created, 0).In(now.Location()), rollover), nil
}

func (c *Collection) learnAheadSecs(ctx context.Context) (int64, error) {
	return getJSON[int64](ctx, c, ConfigLearnAheadSecs, DefaultLearnAheadSecs)
}

// CurrentDeckID falls back to the default deck when the stored one is gone.
func (c *Collection) CurrentDeckID(ctx context.Context) (model.DeckID, error) {
	id, err := getJSON(ctx, c, ConfigCurrentDeck, model.DefaultDeckID)
	if err != nil {
		return 0, err
	}
	if _, err := c.getDeck(ctx, id); errors.Is(err, errs.ErrNotFound) {
		return model.DefaultDeckID, nil
	} else if err != nil {
		return 0, err
	}
	return id, nil
}

// getDeck returns a copy that the caller may modify.
func (c *Collection) getDeck(ctx context.Context, id model.DeckID) (*model.Deck, error) {
	d, ok := c.deckCache[id]
	if !ok {
		var err error
		if d, err = c.storage.GetDeck(ctx, id); err != nil {
			return nil, err
		}
		c.deckCache[id] = d
	}
	cp := d.Clone()
	return &cp, nil
}

// getDeckConfig falls back to the default preset for a missing id.
func (c *Collection) getDeckConfig(ctx context.Context, id model.DeckConfigID) (*model.DeckConfig, error) {
	cfg, ok := c.configCache[id]
	if !ok {
		var err error
		cfg, err = c.storage.GetDeckConfig(ctx, id)
		if errors.Is(err, errs.ErrNotFound) && id != model.DefaultDeckConfigID {
			return c.getDeckConfig(ctx, model.DefaultDeckConfigID)
		}
		if err != nil {
			return nil, err
		}
		c.configCache[id] = cfg
	}
	cp := cfg.Clone()
	return &cp, nil
}

// homeDeckConfig is the preset governing a card, which for cards in a
// filtered deck is that of their home deck.
func (c *Collection) homeDeckConfig(ctx context.Context, card *model.Card) (*model.DeckConfig, error) {
	home, err := c.getDeck(ctx, card.HomeDeckID())
	if err != nil {
		return nil, err
	}
	return c.getDeckConfig(ctx, home.ConfigID)
}

func (c *Collection) clearCaches() {
	clear(c.deckCache)
	clear(c.configCache)
}

func (c *Collection) clearQueues() {
	c.queues = nil
	c.queuesDeck = 0
}
