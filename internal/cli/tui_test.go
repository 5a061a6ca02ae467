package cli

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/gitway/pkg/pipeline"
)

func applied(t *testing.T) *pipeline.Result {
	t.Helper()
	runner := pipeline.NewRunner(nil, nil, nil, nil)
	res, err := runner.Apply(context.Background(), 1, []byte(testSnapshot))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestWatchModelWaiting(t *testing.T) {
	m := NewWatchModel("file:snap.json", nil)
	view := m.View()
	if !strings.Contains(view, "waiting") {
		t.Errorf("view before first pass:\n%s", view)
	}
	if !strings.Contains(view, "file:snap.json") {
		t.Error("view does not name the source")
	}
}

func TestWatchModelDiagram(t *testing.T) {
	m := NewWatchModel("test", nil)
	m.now = func() time.Time { return time.Unix(300, 0) }

	next, _ := m.Update(passErrMsg{err: stderrors.New("boom")})
	m = next.(WatchModel)
	if !strings.Contains(m.View(), "boom") {
		t.Error("error not shown")
	}

	next, _ = m.Update(diagramMsg{res: applied(t)})
	m = next.(WatchModel)
	if m.Err != nil {
		t.Error("a new diagram should clear the error")
	}
	if m.Passes != 1 {
		t.Errorf("passes = %d, want 1", m.Passes)
	}

	view := m.View()
	for _, want := range []string{"main", "login", "2 lanes", "3 commits"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestWatchModelKeys(t *testing.T) {
	refreshed := 0
	m := NewWatchModel("test", func() { refreshed++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if cmd != nil {
		t.Error("refresh should not return a command")
	}
	if refreshed != 1 {
		t.Errorf("refresh called %d times, want 1", refreshed)
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not produce QuitMsg")
	}
}

func TestWatchModelResize(t *testing.T) {
	m := NewWatchModel("test", nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 40, Height: 20})
	m = next.(WatchModel)
	if m.columns() != watchMinColumns {
		t.Errorf("columns = %d, want minimum %d", m.columns(), watchMinColumns)
	}

	next, _ = m.Update(tea.WindowSizeMsg{Width: 144, Height: 40})
	m = next.(WatchModel)
	if m.columns() != 100 {
		t.Errorf("columns = %d, want 100", m.columns())
	}
}
