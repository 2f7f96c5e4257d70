// Package presets loads deck configuration presets from YAML files.
//
// A presets file holds a list under the "presets" key. Each entry starts
// out as the stock preset, so a file only needs the fields it changes:
//
//	presets:
//	  - name: Vocab
//	    new_per_day: 40
//	    learn_steps: [1, 10, 60]
package presets

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog/log"

	"github.com/domino14/srs_scheduler/internal/collection"
	"github.com/domino14/srs_scheduler/internal/model"
)

const presetsKey = "presets"

// Load reads and validates every preset in the file at path.
func Load(path string) ([]model.DeckConfig, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading presets from %s: %w", path, err)
	}
	if !k.Exists(presetsKey) {
		return nil, fmt.Errorf("%s has no %q list", path, presetsKey)
	}

	seen := map[string]bool{}
	var out []model.DeckConfig
	for i, sub := range k.Slices(presetsKey) {
		cfg := model.DefaultDeckConfig()
		cfg.ID = 0
		cfg.Name = ""
		// Lists in the file replace the stock lists rather than overlaying
		// them element by element.
		for key, list := range map[string]*[]float32{
			"learn_steps":   &cfg.LearnSteps,
			"relearn_steps": &cfg.RelearnSteps,
		} {
			if sub.Exists(key) {
				*list = nil
			}
		}
		if sub.Exists("fsrs_weights") {
			cfg.FsrsWeights = nil
		}
		err := sub.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"})
		if err != nil {
			return nil, fmt.Errorf("preset %d: %w", i, err)
		}
		// Ids belong to the collection a preset is imported into.
		cfg.ID = 0
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("preset %d (%s): %w", i, cfg.Name, err)
		}
		key := strings.ToLower(cfg.Name)
		if seen[key] {
			return nil, fmt.Errorf("preset %q appears twice", cfg.Name)
		}
		seen[key] = true
		out = append(out, cfg)
	}
	return out, nil
}

// Import adds the presets to col, replacing existing presets with the same
// name. The whole import is a single undo step.
func Import(ctx context.Context, col *collection.Collection, presets []model.DeckConfig) (collection.OpChanges, error) {
	existing, err := col.DeckConfigs(ctx)
	if err != nil {
		return collection.OpChanges{}, err
	}
	byName := make(map[string]model.DeckConfig, len(existing))
	for _, c := range existing {
		byName[strings.ToLower(c.Name)] = c
	}

	step := col.AddCustomUndoStep("Import Presets")
	for _, p := range presets {
		if old, ok := byName[strings.ToLower(p.Name)]; ok {
			p.ID = old.ID
		}
		if _, err := col.AddOrUpdateDeckConfig(ctx, p); err != nil {
			// Keep whatever was saved undoable as one step.
			col.MergeUndoableOps(step)
			return collection.OpChanges{}, err
		}
	}
	changes, err := col.MergeUndoableOps(step)
	if err != nil {
		return collection.OpChanges{}, err
	}
	log.Ctx(ctx).Info().Int("count", len(presets)).Msg("presets-imported")
	return changes, nil
}
