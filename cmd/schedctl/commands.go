package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/domino14/srs_scheduler/internal/collection"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/presets"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the collection if it does not exist",
	Args:  cobra.NoArgs,
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		decks, err := col.Decks(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("collection ready at %s with %d deck(s)\n", dbURI, len(decks))
		return nil
	}),
}

var (
	addDeck      string
	addTemplates int
	addTags      []string
)

var addCmd = &cobra.Command{
	Use:   "add FRONT BACK [FIELD...]",
	Short: "Add a note and its cards",
	Args:  cobra.MinimumNArgs(2),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		deckID := model.DefaultDeckID
		if addDeck != "" {
			deck, err := col.AddDeck(ctx, addDeck, model.DefaultDeckConfigID)
			if err != nil {
				return err
			}
			deckID = deck.Output.ID
		}
		out, err := col.AddNote(ctx, model.Note{Fields: args, Tags: addTags}, deckID, addTemplates)
		if err != nil {
			return err
		}
		fmt.Printf("added note %d\n", out.Output.ID)
		return nil
	}),
}

var decksCmd = &cobra.Command{
	Use:   "decks",
	Short: "List decks with their due counts",
	Args:  cobra.NoArgs,
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		decks, err := col.Decks(ctx)
		if err != nil {
			return err
		}
		current, err := col.CurrentDeckID(ctx)
		if err != nil {
			return err
		}
		for _, d := range decks {
			marker := " "
			if d.ID == current {
				marker = "*"
			}
			kind := ""
			if d.IsFiltered() {
				kind = " (filtered)"
			}
			fmt.Printf("%s %4d  %s%s\n", marker, d.ID, d.Name, kind)
		}
		return nil
	}),
}

var nextLimit int

var nextCmd = &cobra.Command{
	Use:   "next [DECK]",
	Short: "Show the next cards to study",
	Args:  cobra.MaximumNArgs(1),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		if len(args) == 1 {
			if err := selectDeck(ctx, col, args[0]); err != nil {
				return err
			}
		}
		queued, err := col.GetQueuedCards(ctx, nextLimit, false)
		if err != nil {
			return err
		}
		t, err := col.TimingToday(ctx)
		if err != nil {
			return err
		}
		c := queued.Counts
		fmt.Printf("new %d  learning %d  review %d\n", c.New, c.Learning, c.Review)
		for _, qc := range queued.Cards {
			fmt.Printf("%6d  %-8s %s\n", qc.Card.ID, qc.Kind, buttonLabels(qc.States, t.SecsUntilRollover()))
		}
		return nil
	}),
}

var answerCmd = &cobra.Command{
	Use:   "answer CARD_ID RATING",
	Short: "Answer a card with again, hard, good or easy",
	Args:  cobra.ExactArgs(2),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		ids, err := parseCardIDs(args[:1])
		if err != nil {
			return err
		}
		rating, err := parseRating(args[1])
		if err != nil {
			return err
		}
		if _, err := col.AnswerAt(ctx, ids[0], rating, time.Time{}, 0); err != nil {
			return err
		}
		fmt.Printf("answered card %d: %s\n", ids[0], rating)
		return nil
	}),
}

func buryOrSuspendCmd(use, short string, mode collection.BuryOrSuspendMode) *cobra.Command {
	return &cobra.Command{
		Use:   use + " CARD_ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
			ids, err := parseCardIDs(args)
			if err != nil {
				return err
			}
			out, err := col.BuryOrSuspendCards(ctx, ids, mode)
			if err != nil {
				return err
			}
			fmt.Printf("%d card(s) changed\n", out.Output)
			return nil
		}),
	}
}

var (
	buryCmd    = buryOrSuspendCmd("bury", "Hide cards until tomorrow", collection.BuryUser)
	suspendCmd = buryOrSuspendCmd("suspend", "Hide cards until unsuspended", collection.Suspend)
)

var unsuspendCmd = &cobra.Command{
	Use:   "unsuspend CARD_ID...",
	Short: "Return suspended cards to their queues",
	Args:  cobra.MinimumNArgs(1),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		ids, err := parseCardIDs(args)
		if err != nil {
			return err
		}
		out, err := col.UnsuspendCards(ctx, ids)
		if err != nil {
			return err
		}
		fmt.Printf("%d card(s) unsuspended\n", out.Output)
		return nil
	}),
}

var unburyCmd = &cobra.Command{
	Use:   "unbury [DECK]",
	Short: "Unbury every card in a deck and its children",
	Args:  cobra.MaximumNArgs(1),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		if len(args) == 1 {
			if err := selectDeck(ctx, col, args[0]); err != nil {
				return err
			}
		}
		deckID, err := col.CurrentDeckID(ctx)
		if err != nil {
			return err
		}
		out, err := col.UnburyDeck(ctx, deckID, collection.UnburyAll)
		if err != nil {
			return err
		}
		fmt.Printf("%d card(s) unburied\n", out.Output)
		return nil
	}),
}

var (
	filteredReschedule bool
	filteredPreview    uint32
)

var filteredCmd = &cobra.Command{
	Use:   "filtered",
	Short: "Build or empty filtered decks",
}

var filteredBuildCmd = &cobra.Command{
	Use:   "build NAME SOURCE_DECK",
	Short: "Pull due cards from SOURCE_DECK into a new filtered deck",
	Args:  cobra.ExactArgs(2),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		out, err := col.AddFilteredDeck(ctx, args[0], model.FilteredDeck{
			Search:           args[1],
			Reschedule:       filteredReschedule,
			PreviewDelayMins: filteredPreview,
		})
		if err != nil {
			return err
		}
		fmt.Printf("built filtered deck %d\n", out.Output.ID)
		return nil
	}),
}

var filteredEmptyCmd = &cobra.Command{
	Use:   "empty NAME",
	Short: "Return a filtered deck's cards to their home decks",
	Args:  cobra.ExactArgs(1),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		deck, err := findDeck(ctx, col, args[0])
		if err != nil {
			return err
		}
		_, err = col.EmptyFilteredDeck(ctx, deck.ID)
		return err
	}),
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Manage deck option presets",
}

var presetsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Add or replace presets from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		loaded, err := presets.Load(args[0])
		if err != nil {
			return err
		}
		if _, err := presets.Import(ctx, col, loaded); err != nil {
			return err
		}
		fmt.Printf("imported %d preset(s)\n", len(loaded))
		return nil
	}),
}

var studyCmd = &cobra.Command{
	Use:   "study [DECK]",
	Short: "Study the current deck interactively",
	Args:  cobra.MaximumNArgs(1),
	RunE: withCollection(func(ctx context.Context, col *collection.Collection, args []string) error {
		if len(args) == 1 {
			if err := selectDeck(ctx, col, args[0]); err != nil {
				return err
			}
		}
		return runStudy(ctx, col)
	}),
}

func init() {
	addCmd.Flags().StringVar(&addDeck, "deck", "", "deck to add to, created if missing")
	addCmd.Flags().IntVar(&addTemplates, "templates", 1, "number of cards to generate")
	addCmd.Flags().StringSliceVar(&addTags, "tag", nil, "tag the note")
	nextCmd.Flags().IntVarP(&nextLimit, "limit", "n", 10, "number of cards to show")
	filteredBuildCmd.Flags().BoolVar(&filteredReschedule, "reschedule", true, "answers change the cards' schedules")
	filteredBuildCmd.Flags().Uint32Var(&filteredPreview, "preview-delay", 10, "minutes between previews when not rescheduling")

	filteredCmd.AddCommand(filteredBuildCmd, filteredEmptyCmd)
	presetsCmd.AddCommand(presetsImportCmd)
}

func findDeck(ctx context.Context, col *collection.Collection, name string) (model.Deck, error) {
	decks, err := col.Decks(ctx)
	if err != nil {
		return model.Deck{}, err
	}
	for _, d := range decks {
		if strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return model.Deck{}, fmt.Errorf("no deck named %q", name)
}

func selectDeck(ctx context.Context, col *collection.Collection, name string) error {
	deck, err := findDeck(ctx, col, name)
	if err != nil {
		return err
	}
	_, err = col.SetCurrentDeck(ctx, deck.ID)
	return err
}

func parseCardIDs(args []string) ([]model.CardID, error) {
	ids := make([]model.CardID, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad card id %q", a)
		}
		ids = append(ids, model.CardID(id))
	}
	return ids, nil
}

// parseRating takes a button number or name in any case.
func parseRating(s string) (states.Rating, error) {
	if n, err := strconv.Atoi(s); err == nil {
		r := states.Rating(n)
		if !r.IsValid() {
			return 0, fmt.Errorf("%w: %d", states.ErrInvalidRating, n)
		}
		return r, nil
	}
	if s == "" {
		return 0, states.ErrInvalidRating
	}
	var r states.Rating
	err := r.UnmarshalText([]byte(strings.ToUpper(s[:1]) + strings.ToLower(s[1:])))
	return r, err
}

func buttonLabels(st states.SchedulingStates, secsUntilRollover uint32) string {
	var parts []string
	for _, r := range []states.Rating{states.Again, states.Hard, states.Good, states.Easy} {
		next := st.ForRating(r)
		parts = append(parts, fmt.Sprintf("%s %s", r, next.IntervalKind().MaybeAsDays(secsUntilRollover)))
	}
	return strings.Join(parts, "  ")
}
