package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"unwrapped/internal/logging"
	"unwrapped/internal/poller"
	"unwrapped/internal/session"
)

const watchBarWidth = 48

type snapshotMsg poller.Snapshot

type sessionDoneMsg struct{}

type watchModel struct {
	username string
	cancel   context.CancelFunc
	spinner  spinner.Model
	bar      progress.Model
	snap     poller.Snapshot
	finished bool
}

func newWatchModel(username string, cancel context.CancelFunc) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(watchBarWidth))
	return watchModel{
		username: username,
		cancel:   cancel,
		spinner:  sp,
		bar:      bar,
		snap:     poller.Snapshot{State: poller.StateIdle},
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.cancel()
			return m, tea.Quit
		}
	case snapshotMsg:
		m.snap = poller.Snapshot(msg)
		return m, nil
	case sessionDoneMsg:
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Unwrapped for "+m.username) + "\n\n")

	status := string(m.snap.State)
	if m.snap.JobState != "" {
		status = string(m.snap.JobState)
	}
	switch m.snap.State {
	case poller.StateSucceeded:
		b.WriteString(okStyle.Render("done") + "\n")
	case poller.StateFailed:
		b.WriteString(errorStyle.Render("failed: "+m.snap.Error) + "\n")
	default:
		fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), status)
	}
	b.WriteString(m.bar.ViewAs(m.snap.Progress) + "\n")
	if m.snap.LastError != "" && !m.snap.State.IsTerminal() {
		b.WriteString(mutedStyle.Render("retrying: "+m.snap.LastError) + "\n")
	}
	if !m.finished {
		b.WriteString(mutedStyle.Render("q to stop waiting") + "\n")
	}
	return b.String()
}

// runWatch runs the session behind a live progress view.
func runWatch(ctx context.Context, cmd *cobra.Command, sc *session.Context, deps session.Deps, opts session.Options) (session.View, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(
		newWatchModel(sc.Username(), cancel),
		tea.WithContext(runCtx),
		tea.WithOutput(cmd.OutOrStdout()),
	)

	deps.Logger = logging.NewNop()
	opts.OnUpdate = func(snap poller.Snapshot) {
		program.Send(snapshotMsg(snap))
	}

	type outcome struct {
		view session.View
		err  error
	}
	results := make(chan outcome, 1)
	go func() {
		view, err := session.Run(runCtx, sc, deps, opts)
		results <- outcome{view: view, err: err}
		program.Send(sessionDoneMsg{})
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil && runCtx.Err() == nil {
		cancel()
		res := <-results
		return res.view, fmt.Errorf("progress view: %w", err)
	}
	cancel()
	res := <-results
	return res.view, res.err
}
