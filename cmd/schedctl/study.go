package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/domino14/srs_scheduler/internal/collection"
	"github.com/domino14/srs_scheduler/internal/model"
	"github.com/domino14/srs_scheduler/internal/scheduler/answering"
	"github.com/domino14/srs_scheduler/internal/scheduler/queue"
	"github.com/domino14/srs_scheduler/internal/scheduler/states"
)

type keyMap struct {
	Flip    key.Binding
	Again   key.Binding
	Hard    key.Binding
	Good    key.Binding
	Easy    key.Binding
	Undo    key.Binding
	Redo    key.Binding
	Bury    key.Binding
	Suspend key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Flip, k.Undo, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Flip, k.Again, k.Hard, k.Good, k.Easy},
		{k.Undo, k.Redo, k.Bury, k.Suspend},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Flip:    key.NewBinding(key.WithKeys(" ", "f"), key.WithHelp("space/f", "show answer")),
	Again:   key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "again")),
	Hard:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "hard")),
	Good:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "good")),
	Easy:    key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "easy")),
	Undo:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
	Redo:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "redo")),
	Bury:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bury")),
	Suspend: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "suspend")),
	Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 3).Width(50)
	newStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	learnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	reviewStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("34"))
	statusStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	buttonsStyle = lipgloss.NewStyle().MarginTop(1)
)

type studyModel struct {
	ctx context.Context
	col *collection.Collection
	now func() time.Time

	current           *collection.QueuedCard
	note              model.Note
	counts            queue.Counts
	secsUntilRollover uint32
	shownAt           time.Time
	flipped           bool

	status string
	err    error
	help   help.Model
}

func newStudyModel(ctx context.Context, col *collection.Collection) *studyModel {
	m := &studyModel{ctx: ctx, col: col, now: time.Now, help: help.New()}
	m.load()
	return m
}

func runStudy(ctx context.Context, col *collection.Collection) error {
	_, err := tea.NewProgram(newStudyModel(ctx, col)).Run()
	return err
}

// load fetches the card at the head of the queue.
func (m *studyModel) load() {
	m.flipped = false
	m.current = nil
	queued, err := m.col.GetQueuedCards(m.ctx, 1, false)
	if err != nil {
		m.err = err
		return
	}
	m.counts = queued.Counts
	if t, err := m.col.TimingToday(m.ctx); err == nil {
		m.secsUntilRollover = t.SecsUntilRollover()
	}
	if len(queued.Cards) == 0 {
		return
	}
	qc := queued.Cards[0]
	note, err := m.col.Storage().GetNote(m.ctx, qc.Card.NoteID)
	if err != nil {
		m.err = err
		return
	}
	m.current = &qc
	m.note = *note
	m.shownAt = m.now()
}

func (m *studyModel) Init() tea.Cmd {
	return nil
}

func (m *studyModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Quit):
		return m, tea.Quit
	case key.Matches(keyMsg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(keyMsg, keys.Undo):
		m.undoRedo(m.col.Undo, "undid")
		return m, nil
	case key.Matches(keyMsg, keys.Redo):
		m.undoRedo(m.col.Redo, "redid")
		return m, nil
	}
	if m.current == nil {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keys.Flip):
		m.flipped = true
	case key.Matches(keyMsg, keys.Again):
		m.answer(states.Again)
	case key.Matches(keyMsg, keys.Hard):
		m.answer(states.Hard)
	case key.Matches(keyMsg, keys.Good):
		m.answer(states.Good)
	case key.Matches(keyMsg, keys.Easy):
		m.answer(states.Easy)
	case key.Matches(keyMsg, keys.Bury):
		m.buryOrSuspend(collection.BuryUser, "buried")
	case key.Matches(keyMsg, keys.Suspend):
		m.buryOrSuspend(collection.Suspend, "suspended")
	}
	return m, nil
}

func (m *studyModel) answer(r states.Rating) {
	if !m.flipped {
		return
	}
	qc := m.current
	taken := m.now().Sub(m.shownAt).Milliseconds()
	_, err := m.col.AnswerCard(m.ctx, &answering.CardAnswer{
		CardID:            qc.Card.ID,
		Rating:            r,
		CurrentState:      qc.States.Current,
		NewState:          qc.States.ForRating(r),
		MillisecondsTaken: uint32(max(taken, 0)),
		FromQueue:         true,
	})
	m.report(err, fmt.Sprintf("answered %s", r))
}

func (m *studyModel) buryOrSuspend(mode collection.BuryOrSuspendMode, verb string) {
	_, err := m.col.BuryOrSuspendCards(m.ctx, []model.CardID{m.current.Card.ID}, mode)
	m.report(err, verb+" card")
}

func (m *studyModel) undoRedo(f func(context.Context) (collection.OpChangesAfterUndo, error), verb string) {
	out, err := f(m.ctx)
	m.report(err, fmt.Sprintf("%s %s", verb, out.Operation))
}

func (m *studyModel) report(err error, status string) {
	m.err = err
	if err != nil {
		m.status = ""
		return
	}
	m.status = status
	m.load()
}

func (m *studyModel) front() string {
	if len(m.note.Fields) == 0 {
		return ""
	}
	return m.note.Fields[int(m.current.Card.TemplateIdx)%len(m.note.Fields)]
}

func (m *studyModel) back() string {
	var others []string
	front := int(m.current.Card.TemplateIdx) % max(len(m.note.Fields), 1)
	for i, f := range m.note.Fields {
		if i != front {
			others = append(others, f)
		}
	}
	return strings.Join(others, "\n")
}

func (m *studyModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Study"))
	b.WriteString("  ")
	b.WriteString(newStyle.Render(fmt.Sprint(m.counts.New)) + " ")
	b.WriteString(learnStyle.Render(fmt.Sprint(m.counts.Learning)) + " ")
	b.WriteString(reviewStyle.Render(fmt.Sprint(m.counts.Review)))
	b.WriteString("\n\n")

	if m.current == nil {
		b.WriteString("Congratulations! You have finished this deck for now.\n")
	} else {
		body := m.front()
		if m.flipped {
			body += "\n\n" + strings.Repeat("-", 20) + "\n\n" + m.back()
		}
		b.WriteString(cardStyle.Render(body))
		b.WriteString("\n")
		if m.flipped {
			b.WriteString(buttonsStyle.Render(m.buttons()))
			b.WriteString("\n")
		}
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + m.help.View(keys) + "\n")
	return b.String()
}

func (m *studyModel) buttons() string {
	var parts []string
	for _, r := range []states.Rating{states.Again, states.Hard, states.Good, states.Easy} {
		interval := m.current.States.ForRating(r).IntervalKind().MaybeAsDays(m.secsUntilRollover)
		parts = append(parts, fmt.Sprintf("(%d) %s %s", int(r), r, interval))
	}
	return strings.Join(parts, "    ")
}
