package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gosuri/uilive"
)

// ProgressUpdate is one step of a long-running operation
type ProgressUpdate struct {
	Current int
	Total   int
	Label   string // e.g. "token 42"
	Status  string // e.g. "fetched 3 · not found 39"
}

// Percent returns the completed fraction in [0, 1]
func (u ProgressUpdate) Percent() float64 {
	if u.Total <= 0 {
		return 0
	}
	p := float64(u.Current) / float64(u.Total)
	if p > 1 {
		return 1
	}
	return p
}

type progressMsg ProgressUpdate

type progressDoneMsg struct{}

// ProgressModel renders a progress bar fed by a channel of updates
type ProgressModel struct {
	title    string
	updates  <-chan ProgressUpdate
	onCancel func()
	bar      progress.Model
	last     ProgressUpdate
	canceled bool
}

// NewProgressModel creates a bar for the updates channel.
// onCancel is called on ctrl+c; the model keeps running until the channel closes.
func NewProgressModel(title string, updates <-chan ProgressUpdate, onCancel func()) ProgressModel {
	return ProgressModel{
		title:    title,
		updates:  updates,
		onCancel: onCancel,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m ProgressModel) waitForUpdate() tea.Msg {
	u, ok := <-m.updates
	if !ok {
		return progressDoneMsg{}
	}
	return progressMsg(u)
}

func (m ProgressModel) Init() tea.Cmd {
	return m.waitForUpdate
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.canceled {
			m.canceled = true
			if m.onCancel != nil {
				m.onCancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-20, 60)
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
		return m, nil

	case progressMsg:
		m.last = ProgressUpdate(msg)
		return m, m.waitForUpdate

	case progressDoneMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder
	b.WriteString(StyleHeader.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(m.last.Percent()))
	b.WriteString(fmt.Sprintf(" %d/%d", m.last.Current, m.last.Total))
	b.WriteString("\n")
	if m.last.Label != "" || m.last.Status != "" {
		b.WriteString(StyleMuted.Render(strings.TrimSpace(m.last.Label + "  " + m.last.Status)))
		b.WriteString("\n")
	}
	if m.canceled {
		b.WriteString(FormatWarning("Stopping after the current request..."))
		b.WriteString("\n")
	}
	return b.String()
}

// RunProgress shows the bubbletea bar until updates is closed
func RunProgress(title string, updates <-chan ProgressUpdate, onCancel func()) error {
	p := tea.NewProgram(NewProgressModel(title, updates, onCancel))
	_, err := p.Run()
	return err
}

// PlainProgress prints updates on a single live-refreshed line, for non-interactive output
func PlainProgress(out io.Writer, title string, updates <-chan ProgressUpdate) {
	fmt.Fprintln(out, title)

	writer := uilive.New()
	writer.Out = out
	writer.Start()
	defer writer.Stop()

	for u := range updates {
		fmt.Fprintf(writer, "%s\n", FormatPlainProgress(u))
	}
}

// FormatPlainProgress renders an update as "[ 42/7777]  0.5% token 41  fetched 3"
func FormatPlainProgress(u ProgressUpdate) string {
	width := len(fmt.Sprint(u.Total))
	line := fmt.Sprintf("[%*d/%d] %5.1f%%", width, u.Current, u.Total, u.Percent()*100)
	if u.Label != "" {
		line += " " + u.Label
	}
	if u.Status != "" {
		line += "  " + u.Status
	}
	return line
}
