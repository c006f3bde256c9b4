// Package ui is a terminal form that collects one patient record, sends it
// to the prediction API and shows the result.
package ui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/YuminosukeSato/heartml/internal/predict"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Predicter is the API call the form makes.
type Predicter interface {
	Predict(ctx context.Context, record map[string]interface{}) (*predict.Prediction, error)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("#AAAAAA"))
	focusStyle = lipgloss.NewStyle().Width(16).Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FD787"))
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
)

// defaults prefill the form with a plausible record.
var defaults = map[string]string{
	"Age": "54", "Sex": "M", "ChestPainType": "ASY", "RestingBP": "130",
	"Cholesterol": "240", "FastingBS": "0", "RestingECG": "Normal", "MaxHR": "140",
	"ExerciseAngina": "N", "Oldpeak": "1.0", "ST_Slope": "Flat",
}

type resultMsg struct {
	pred *predict.Prediction
	err  error
}

// Model is the bubbletea model of the form.
type Model struct {
	api    Predicter
	names  []string
	inputs []textinput.Model
	focus  int

	submitting bool
	result     *predict.Prediction
	err        error
}

// New builds the form.
func New(api Predicter) Model {
	names := predict.FieldNames()
	inputs := make([]textinput.Model, len(names))
	for i, name := range names {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 16
		in.Width = 16
		in.SetValue(defaults[name])
		if allowed := predict.Allowed(name); allowed != nil {
			in.Placeholder = strings.Join(allowed, "|")
		}
		inputs[i] = in
	}
	inputs[0].Focus()
	return Model{api: api, names: names, inputs: inputs}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Record returns the form as a JSON-ready record. Cells that parse as JSON
// numbers are sent as numbers, everything else as strings, so the API does
// all the validation.
func (m Model) Record() map[string]interface{} {
	rec := make(map[string]interface{}, len(m.names))
	for i, name := range m.names {
		v := strings.TrimSpace(m.inputs[i].Value())
		var n json.Number
		if predict.Allowed(name) == nil || name == "FastingBS" {
			if err := json.Unmarshal([]byte(v), &n); err == nil && v != "" {
				rec[name] = n
				continue
			}
		}
		rec[name] = v
	}
	return rec
}

func (m Model) submit() tea.Cmd {
	api, rec := m.api, m.Record()
	return func() tea.Msg {
		p, err := api.Predict(context.Background(), rec)
		return resultMsg{pred: p, err: err}
	}
}

func (m *Model) setFocus(i int) tea.Cmd {
	n := len(m.inputs)
	m.inputs[m.focus].Blur()
	m.focus = ((i % n) + n) % n
	return m.inputs[m.focus].Focus()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resultMsg:
		m.submitting = false
		m.result, m.err = msg.pred, msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "down":
			return m, m.setFocus(m.focus + 1)
		case "shift+tab", "up":
			return m, m.setFocus(m.focus - 1)
		case "enter":
			if m.focus < len(m.inputs)-1 {
				return m, m.setFocus(m.focus + 1)
			}
			fallthrough
		case "ctrl+s":
			if m.submitting {
				return m, nil
			}
			m.submitting = true
			m.err = nil
			return m, m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Heart disease prediction"))
	b.WriteString("\n")
	for i, name := range m.names {
		label := labelStyle
		if i == m.focus {
			label = focusStyle
		}
		line := label.Render(name) + " " + m.inputs[i].View()
		if allowed := predict.Allowed(name); allowed != nil {
			line += "  " + hintStyle.Render(strings.Join(allowed, " / "))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.submitting:
		b.WriteString(boxStyle.Render("Predicting..."))
	case m.err != nil:
		b.WriteString(boxStyle.Render(errStyle.Render("Error: " + m.err.Error())))
	case m.result != nil:
		style := okStyle
		if m.result.Label == 1 {
			style = alertStyle
		}
		b.WriteString(boxStyle.Render(style.Render(fmt.Sprintf("%s (prediction=%d)", m.result.Result, m.result.Label))))
	}
	b.WriteString("\n" + hintStyle.Render("tab/shift+tab move · enter next/submit · ctrl+s submit · esc quit") + "\n")
	return b.String()
}

// Run starts the form against the API at baseURL.
func Run(baseURL string) error {
	_, err := tea.NewProgram(New(NewClient(baseURL))).Run()
	return err
}
