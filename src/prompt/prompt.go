// Package prompt asks the user for missing values on the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// Field describes one value to ask for.
type Field struct {
	Name     string
	Label    string
	Hidden   bool
	Required bool
	// Validate runs on submit; a non-nil error keeps the prompt open.
	Validate func(string) error
}

// Prompter asks for values interactively.
type Prompter interface {
	// Ask returns the answers keyed by field name. Empty optional answers
	// are left out.
	Ask(ctx context.Context, fields []Field) (map[string]string, error)

	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
}

// TeaPrompter prompts with a bubbletea program, one field at a time.
type TeaPrompter struct {
	in  io.Reader
	out io.Writer
}

// NewTeaPrompter creates a prompter on the given streams.
func NewTeaPrompter(in io.Reader, out io.Writer) *TeaPrompter {
	return &TeaPrompter{in: in, out: out}
}

func (p *TeaPrompter) Ask(ctx context.Context, fields []Field) (map[string]string, error) {
	if len(fields) == 0 {
		return map[string]string{}, nil
	}
	m := newFormModel(fields)
	final, err := p.run(ctx, m)
	if err != nil {
		return nil, err
	}
	fm := final.(formModel)
	if fm.aborted {
		return nil, ErrAborted
	}
	return fm.answers, nil
}

func (p *TeaPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	answers, err := p.Ask(ctx, []Field{{
		Name:  "confirm",
		Label: question + " (y/n):",
		Validate: func(s string) error {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "y", "yes", "n", "no":
				return nil
			}
			return fmt.Errorf("please answer y or n")
		},
		Required: true,
	}})
	if err != nil {
		return false, err
	}
	return IsYes(answers["confirm"]), nil
}

func (p *TeaPrompter) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	program := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := program.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("prompt failed: %w", err)
	}
	return final, nil
}

// IsYes reports whether s is an affirmative answer.
func IsYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBC04")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EA4335"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA0A6"))
)

// formModel walks through fields with a single text input.
type formModel struct {
	fields  []Field
	current int
	input   textinput.Model
	answers map[string]string
	done    []string
	errMsg  string
	aborted bool
}

func newFormModel(fields []Field) formModel {
	m := formModel{fields: fields, answers: map[string]string{}}
	m.input = newInput(fields[0])
	return m
}

func newInput(f Field) textinput.Model {
	ti := textinput.New()
	ti.Prompt = labelStyle.Render(f.Label) + " "
	ti.CharLimit = 4096
	ti.Width = 60
	if f.Hidden {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '*'
	}
	ti.Focus()
	return ti
}

func (m formModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m formModel) submit() (tea.Model, tea.Cmd) {
	f := m.fields[m.current]
	value := strings.TrimSpace(m.input.Value())

	if value == "" && f.Required {
		m.errMsg = f.Label + " is required"
		return m, nil
	}
	if value != "" && f.Validate != nil {
		if err := f.Validate(value); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
	}

	if value != "" {
		m.answers[f.Name] = value
	}
	shown := value
	if f.Hidden {
		shown = strings.Repeat("*", len(value))
	}
	m.done = append(m.done, labelStyle.Render(f.Label)+" "+doneStyle.Render(shown))
	m.errMsg = ""

	m.current++
	if m.current >= len(m.fields) {
		return m, tea.Quit
	}
	m.input = newInput(m.fields[m.current])
	return m, textinput.Blink
}

func (m formModel) View() string {
	var b strings.Builder
	for _, line := range m.done {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.current < len(m.fields) && !m.aborted {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if m.errMsg != "" {
			b.WriteString(errStyle.Render(m.errMsg))
			b.WriteString("\n")
		}
	}
	return b.String()
}
