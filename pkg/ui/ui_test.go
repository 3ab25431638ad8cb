package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestTable_RenderTruncates(t *testing.T) {
	SetTheme("none")

	table := NewTable([]TableColumn{
		{Header: "ID", Width: 4},
		{Header: "NAME", MaxWidth: 6},
	})
	table.AddRow([]string{"1", "Short"})
	table.AddRow([]string{"2", "A very long name"})

	out := table.Render()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[3], "A ver…") {
		t.Errorf("expected truncated cell, got %q", lines[3])
	}
	if strings.Contains(out, "long name") {
		t.Error("expected long value to be cut")
	}
}

func TestTable_EmptyColumns(t *testing.T) {
	if out := NewTable(nil).Render(); out != "" {
		t.Errorf("expected empty render, got %q", out)
	}
}

func TestPadString(t *testing.T) {
	tests := []struct {
		s, align string
		width    int
		expected string
	}{
		{"ab", "left", 4, "ab  "},
		{"ab", "right", 4, "  ab"},
		{"ab", "center", 5, " ab  "},
		{"abcdef", "left", 3, "abcdef"},
	}
	for _, tt := range tests {
		if got := padString(tt.s, tt.width, tt.align); got != tt.expected {
			t.Errorf("padString(%q, %d, %q) = %q, want %q", tt.s, tt.width, tt.align, got, tt.expected)
		}
	}
}

func TestProgressUpdate_Percent(t *testing.T) {
	tests := []struct {
		u        ProgressUpdate
		expected float64
	}{
		{ProgressUpdate{Current: 0, Total: 0}, 0},
		{ProgressUpdate{Current: 1, Total: 4}, 0.25},
		{ProgressUpdate{Current: 9, Total: 4}, 1},
	}
	for _, tt := range tests {
		if got := tt.u.Percent(); got != tt.expected {
			t.Errorf("Percent(%+v) = %v, want %v", tt.u, got, tt.expected)
		}
	}
}

func TestFormatHelpers_IncludeIcons(t *testing.T) {
	tests := []struct {
		got  string
		icon string
		msg  string
	}{
		{FormatImage("3 images saved"), IconImage, "3 images saved"},
		{FormatExport("out.csv"), IconExport, "out.csv"},
		{FormatRocket("Fetching"), IconRocket, "Fetching"},
	}

	for _, tt := range tests {
		if !strings.Contains(tt.got, tt.icon) || !strings.Contains(tt.got, tt.msg) {
			t.Errorf("expected %q to contain %q and %q", tt.got, tt.icon, tt.msg)
		}
	}
}

func TestFormatPlainProgress(t *testing.T) {
	got := FormatPlainProgress(ProgressUpdate{Current: 42, Total: 7777, Label: "token 41", Status: "fetched 3"})
	expected := "[  42/7777]   0.5% token 41  fetched 3"
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestPlainProgress_DrainsChannel(t *testing.T) {
	updates := make(chan ProgressUpdate, 3)
	for i := 1; i <= 3; i++ {
		updates <- ProgressUpdate{Current: i, Total: 3}
	}
	close(updates)

	var buf bytes.Buffer
	PlainProgress(&buf, "Fetching", updates)

	if !strings.HasPrefix(buf.String(), "Fetching\n") {
		t.Errorf("expected title first, got %q", buf.String())
	}
}

func TestProgressModel_Update(t *testing.T) {
	updates := make(chan ProgressUpdate)
	canceled := 0
	m := NewProgressModel("Fetching", updates, func() { canceled++ })

	next, cmd := m.Update(progressMsg{Current: 2, Total: 4, Label: "token 1"})
	model := next.(ProgressModel)
	if model.last.Current != 2 || cmd == nil {
		t.Errorf("expected update to be stored and next wait scheduled")
	}
	if !strings.Contains(model.View(), "2/4") {
		t.Errorf("expected view to show 2/4, got %q", model.View())
	}

	// ctrl+c cancels once and keeps the program running
	for i := 0; i < 2; i++ {
		next, cmd = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		model = next.(ProgressModel)
		if cmd != nil {
			t.Error("ctrl+c should not quit before the run ends")
		}
	}
	if canceled != 1 {
		t.Errorf("expected onCancel once, got %d", canceled)
	}

	_, cmd = model.Update(progressDoneMsg{})
	if cmd == nil {
		t.Fatal("expected quit command when updates close")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
