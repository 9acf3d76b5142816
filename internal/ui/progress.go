package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"treecomp/internal/buildpipeline"
)

// fileState is where one tree file is in the compile.
type fileState uint8

const (
	stateQueued fileState = iota
	stateRunning
	stateDone
	stateCached
	stateFailed
)

func (s fileState) final() bool { return s >= stateDone }

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	stateStyles = [...]lipgloss.Style{
		stateQueued:  lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		stateRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		stateDone:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		stateCached:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		stateFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
	}
	reasonStyle = lipgloss.NewStyle().Faint(true)
)

const statusWidth = 9

type fileItem struct {
	path     string
	state    fileState
	stage    buildpipeline.Stage
	cacheHit bool
	elapsed  time.Duration
	reason   string // first line of the error for failed files
}

func (it fileItem) label() string {
	switch it.state {
	case stateQueued:
		return "queued"
	case stateRunning:
		return it.stage.Verb()
	case stateCached:
		return "cached"
	case stateFailed:
		return "error"
	}
	return "done"
}

type progressModel struct {
	title   string
	events  <-chan buildpipeline.Event
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	width   int
	failed  int
	done    bool
}

type eventMsg buildpipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders compile progress
// for files, fed by events until the channel is closed. files must be the
// display names the driver reports under.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = stateStyles[stateRunning]

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   make([]fileItem, len(files)),
		index:   make(map[string]int, len(files)),
		width:   80,
	}
	for i, file := range files {
		m.items[i] = fileItem{path: file}
		m.index[file] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(buildpipeline.Event(msg)), m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		updated, cmd := m.prog.Update(msg)
		m.prog = updated.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	finished := 0
	for _, item := range m.items {
		if item.state.final() {
			finished++
		}
	}
	header := fmt.Sprintf("%s (%d/%d)", m.title, finished, len(m.items))
	if m.failed > 0 {
		header += fmt.Sprintf(", %d failed", m.failed)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-16, 20)
	for _, item := range m.items {
		status := stateStyles[item.state].Render(fmt.Sprintf("%*s", statusWidth, item.label()))
		fmt.Fprintf(&b, "  %s %s", status, truncate(item.path, nameWidth))
		if item.state.final() && item.elapsed > 0 {
			fmt.Fprintf(&b, " %s", reasonStyle.Render(item.elapsed.Round(time.Microsecond).String()))
		}
		if item.reason != "" {
			fmt.Fprintf(&b, "\n  %*s %s", statusWidth, "", reasonStyle.Render(truncate(item.reason, nameWidth)))
		}
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteByte('\n')
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

// applyEvent moves one file forward. A file is final after an error or after
// its write stage; later events for it are ignored.
func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if item.state.final() {
		return nil
	}
	item.stage = ev.Stage
	item.elapsed += ev.Elapsed
	switch ev.Status {
	case buildpipeline.StatusQueued:
		item.state = stateQueued
	case buildpipeline.StatusWorking:
		item.state = stateRunning
	case buildpipeline.StatusCached:
		item.cacheHit = true
	case buildpipeline.StatusError:
		item.state = stateFailed
		if ev.Err != nil {
			item.reason, _, _ = strings.Cut(ev.Err.Error(), "\n")
		}
		m.failed++
	case buildpipeline.StatusDone:
		if ev.Stage == buildpipeline.StageWrite {
			item.state = stateDone
			if item.cacheHit {
				item.state = stateCached
			}
		}
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		switch {
		case item.state.final():
			total++
		case item.state == stateRunning:
			total += item.stage.Progress()
		}
	}
	return total / float64(len(m.items))
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
