package cli

import (
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/cloudcast/internal/models"
	"github.com/raphaelgruber/cloudcast/internal/service"
)

const tickInterval = 100 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	Accent     lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	Accent:     lipgloss.Color("#AF87FF"), // purple
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

// Style functions for dynamic theming
func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) accentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
}

// tickMsg refreshes the elapsed time
type tickMsg time.Time

// runEventMsg carries an engine event into the program
type runEventMsg models.Event

// progressModel is the bubbletea model for a processing run.
type progressModel struct {
	run      models.RunSnapshot
	results  *models.ResultsRecord
	progress progress.Model
	theme    Theme
	started  time.Time
	elapsed  time.Duration
	done     bool
	quitting bool
	err      error
}

// newProgressModel creates a new progress model for the submitted run.
func newProgressModel(run models.RunSnapshot) progressModel {
	// Create progress bar with color blend
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		run:      run,
		progress: prog,
		theme:    defaultTheme,
		started:  run.StartedAt,
	}
}

// Init starts the elapsed-time ticker.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		m.elapsed = time.Time(msg).Sub(m.started)
		return m, tickCmd()

	case runEventMsg:
		ev := models.Event(msg)
		// Events of an older run can be queued behind a resubmit
		if ev.Run.Generation < m.run.Generation {
			return m, nil
		}
		m.run = ev.Run

		switch ev.Type {
		case models.EventCompleted:
			m.results = ev.Results
			m.done = true
			return m, tea.Quit
		case models.EventFailed:
			m.err = fmt.Errorf("%s", ev.Error)
			m.done = true
			return m, tea.Quit
		}
		return m, nil

	case progress.FrameMsg:
		// Update progress bar animation
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	if m.run.StageLabel == "" {
		return m.theme.statusStyle().Render("Starting run...") + "\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%d/%d]", m.run.StageIndex+1, m.run.TotalStages))
	progressBar := m.progress.ViewAs(m.run.Percent / 100)
	elapsed := fmt.Sprintf("%4.1fs", m.elapsed.Seconds())
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n%s\n", status, progressBar, elapsed, m.run.StageLabel, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		return m.theme.hintStyle().Render(fmt.Sprintf("\nRun %s cancelled.\n", m.run.ID))
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Run failed: %s\n", m.err))
	}

	return m.theme.completedStyle().Render(fmt.Sprintf("✓ Processing complete (%d stages)", m.run.TotalStages)) + "\n"
}

// tickCmd returns a command that sends a tick after the tick interval.
func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runWithProgress submits batch and drives the interactive progress UI until
// the run ends. Returns the results, or nil if the user cancelled.
func runWithProgress(eng *service.Engine, submit func() (models.RunSnapshot, error)) (*models.ResultsRecord, error) {
	var p *tea.Program
	ready := make(chan struct{})
	unsubscribe := eng.Subscribe(func(ev models.Event) {
		<-ready
		p.Send(runEventMsg(ev))
	})
	defer unsubscribe()

	run, err := submit()
	if err != nil {
		close(ready)
		return nil, err
	}

	p = tea.NewProgram(newProgressModel(run))
	close(ready)

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	m, ok := finalModel.(progressModel)
	if !ok || m.quitting {
		eng.Close()
		return nil, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}
