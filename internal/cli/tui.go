package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/gitway/pkg/pipeline"
	"github.com/matzehuels/gitway/pkg/render/text"
)

// Watch styles
var (
	watchHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	watchDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	watchErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	watchLabelWidth = 20
	watchAgeWidth   = 24 // committer and age after each lane
	watchMinColumns = 20
)

// =============================================================================
// Messages
// =============================================================================

// diagramMsg carries a newly applied pass.
type diagramMsg struct {
	res *pipeline.Result
}

// passErrMsg reports a failed pass. The previous diagram stays on screen.
type passErrMsg struct {
	err error
}

// tickMsg re-renders lane ages.
type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// WatchModel - Live diagram view
// =============================================================================

// WatchModel is the bubbletea model of gitway watch.
type WatchModel struct {
	Source  string
	Result  *pipeline.Result
	Err     error
	Width   int
	Passes  int
	Updated time.Time

	now     func() time.Time
	refresh func()
}

// NewWatchModel creates a model for source. refresh is called on "r".
func NewWatchModel(source string, refresh func()) WatchModel {
	if refresh == nil {
		refresh = func() {}
	}
	return WatchModel{
		Source:  source,
		Width:   100,
		now:     time.Now,
		refresh: refresh,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tick()
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.refresh()
		}
	case tea.WindowSizeMsg:
		m.Width = msg.Width
	case diagramMsg:
		m.Result = msg.res
		m.Err = nil
		m.Passes++
		m.Updated = m.now()
	case passErrMsg:
		m.Err = msg.err
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (m WatchModel) View() string {
	var b strings.Builder

	b.WriteString(watchHeaderStyle.Render(appName + " watch"))
	b.WriteString(" ")
	b.WriteString(watchDimStyle.Render(m.Source))
	b.WriteString("\n\n")

	if m.Result == nil {
		b.WriteString(watchDimStyle.Render("waiting for the first snapshot..."))
		b.WriteString("\n")
	} else {
		b.WriteString(text.Render(m.Result.Diagram, text.Options{
			Columns:    m.columns(),
			LabelWidth: watchLabelWidth,
			Now:        m.now(),
		}))
		b.WriteString("\n")
		d := m.Result.Diagram
		b.WriteString(watchDimStyle.Render(fmt.Sprintf("%d lanes · %d commits · pass %d · updated %s",
			len(d.Lanes), len(d.Nodes), m.Result.Seq, m.Updated.Format("15:04:05"))))
		b.WriteString("\n")
	}

	if m.Err != nil {
		b.WriteString(watchErrorStyle.Render(iconError + " " + m.Err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(watchDimStyle.Render("r refresh  q quit"))
	return b.String()
}

// columns is the width left for the time axis.
func (m WatchModel) columns() int {
	return max(watchMinColumns, m.Width-watchLabelWidth-watchAgeWidth)
}
