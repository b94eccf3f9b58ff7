package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
)

type taskDoneMsg struct{ err error }

type spinnerModel struct {
	title   string
	spinner spinner.Model
	task    func() error

	done        bool
	interrupted bool
	err         error
}

func newSpinnerModel(title string, task func() error) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return spinnerModel{title: title, spinner: s, task: task}
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m spinnerModel) run() tea.Msg {
	return taskDoneMsg{err: m.task()}
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.interrupted = true
			return m, tea.Quit
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
}

func (m spinnerModel) View() string {
	if m.done || m.interrupted {
		return ""
	}
	return m.spinner.View() + " " + m.title + "\n"
}

// runWithSpinner runs task while showing a spinner on out. When out is not a
// terminal the task runs without any decoration.
func runWithSpinner(ctx context.Context, out io.Writer, title string, task func(context.Context) error) error {
	f, ok := out.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return task(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newSpinnerModel(title, func() error { return task(ctx) })
	final, err := tea.NewProgram(m, tea.WithOutput(out), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}

	result := final.(spinnerModel)
	if result.interrupted {
		return context.Canceled
	}
	return result.err
}
