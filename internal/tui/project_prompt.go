package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ga4bq/internal/bigquery"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// ErrPromptCancelled is returned when the prompt is left without a project.
var ErrPromptCancelled = errors.New("project prompt cancelled")

const maxVisible = 10

// ProjectLister returns the projects to suggest in addition to the recent
// ones.
type ProjectLister func() ([]*bigquery.Project, error)

type ProjectPromptModel struct {
	input            textinput.Model
	projects         []*bigquery.Project
	filteredProjects []*bigquery.Project
	cursor           int
	navigated        bool
	lister           ProjectLister
	keyMap           KeyMap
	help             help.Model
	selected         string
	cancelled        bool
	err              error
}

// NewProjectPromptModel suggests the recent projects first, then whatever the
// lister returns.
func NewProjectPromptModel(recent []string, lister ProjectLister) ProjectPromptModel {
	input := textinput.New()
	input.Placeholder = "project-id"
	input.Prompt = "> "
	input.CharLimit = 64
	input.Focus()

	m := ProjectPromptModel{
		input:  input,
		lister: lister,
		keyMap: DefaultKeyMap(),
		help:   help.New(),
	}
	for _, id := range recent {
		m.projects = append(m.projects, &bigquery.Project{ID: id, Name: id})
	}
	m.updateFilteredProjects()
	return m
}

func (m ProjectPromptModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadProjects())
}

func (m ProjectPromptModel) loadProjects() tea.Cmd {
	if m.lister == nil {
		return nil
	}
	lister := m.lister
	return func() tea.Msg {
		projects, err := lister()
		if err != nil {
			return ErrorMsg{Error: fmt.Errorf("failed to load projects: %w", err)}
		}
		return ProjectsLoadedMsg{Projects: projects}
	}
}

func (m ProjectPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)
	case ProjectsLoadedMsg:
		m.mergeProjects(msg.Projects)
		m.updateFilteredProjects()
		return m, nil
	case ErrorMsg:
		// Suggestions are optional; typing a project still works.
		m.err = msg.Error
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ProjectPromptModel) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.cancelled = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.navigated = true
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		if m.cursor < m.visible()-1 {
			m.cursor++
		}
		m.navigated = true
		return m, nil

	case key.Matches(msg, m.keyMap.Complete):
		if p := m.highlighted(); p != nil {
			m.input.SetValue(p.ID)
			m.input.CursorEnd()
			m.updateFilteredProjects()
			m.cursor = 0
			m.navigated = false
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Enter):
		// A typed ID wins unless a suggestion was picked with the arrows.
		value := strings.TrimSpace(m.input.Value())
		if p := m.highlighted(); p != nil && (value == "" || m.navigated) {
			value = p.ID
		}
		m.selected = value
		if m.selected == "" {
			return m, nil
		}
		return m, tea.Quit
	}

	var cmd tea.Cmd
	before := m.input.Value()
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.updateFilteredProjects()
		m.cursor = 0
		m.navigated = false
	}
	return m, cmd
}

func (m *ProjectPromptModel) mergeProjects(projects []*bigquery.Project) {
	seen := make(map[string]bool, len(m.projects))
	for _, p := range m.projects {
		seen[p.ID] = true
	}
	for _, p := range projects {
		if !seen[p.ID] {
			seen[p.ID] = true
			m.projects = append(m.projects, p)
		}
	}
}

// updateFilteredProjects applies fuzzy search to filter projects
func (m *ProjectPromptModel) updateFilteredProjects() {
	filter := strings.TrimSpace(m.input.Value())
	if filter == "" {
		m.filteredProjects = m.projects
		return
	}

	var targets []string
	for _, project := range m.projects {
		searchTarget := project.ID
		if project.Name != project.ID {
			searchTarget += " " + project.Name
		}
		targets = append(targets, searchTarget)
	}

	matches := fuzzy.Find(filter, targets)
	m.filteredProjects = make([]*bigquery.Project, 0, len(matches))
	for _, match := range matches {
		m.filteredProjects = append(m.filteredProjects, m.projects[match.Index])
	}
}

func (m ProjectPromptModel) visible() int {
	return min(len(m.filteredProjects), maxVisible)
}

func (m ProjectPromptModel) highlighted() *bigquery.Project {
	if m.cursor < m.visible() {
		return m.filteredProjects[m.cursor]
	}
	return nil
}

// Selected returns the chosen project ID, if any.
func (m ProjectPromptModel) Selected() (string, bool) {
	return m.selected, m.selected != "" && !m.cancelled
}

func (m ProjectPromptModel) View() string {
	if m.selected != "" || m.cancelled {
		return ""
	}

	var content strings.Builder
	content.WriteString(HeaderStyle.Render("BigQuery project for this run") + "\n\n")
	content.WriteString(InputStyle.Render(m.input.View()) + "\n\n")

	n := m.visible()
	for i := 0; i < n; i++ {
		project := m.filteredProjects[i]
		style := ItemStyle
		if i == m.cursor {
			style = SelectedItemStyle
		}

		projectDisplay := project.ID
		if project.Name != project.ID {
			projectDisplay += " (" + project.Name + ")"
		}
		content.WriteString(style.Render("  "+projectDisplay) + "\n")
	}
	if len(m.filteredProjects) > n {
		content.WriteString(SubtleItemStyle.Render(fmt.Sprintf("  ... and %d more matches", len(m.filteredProjects)-n)) + "\n")
	}
	if n == 0 && m.input.Value() != "" {
		content.WriteString(SubtleItemStyle.Render("  press enter to use "+strings.TrimSpace(m.input.Value())) + "\n")
	}
	if m.err != nil {
		content.WriteString(ErrorStyle.Render(m.err.Error()) + "\n")
	}

	content.WriteString("\n" + HelpStyle.Render(m.help.View(m.keyMap)))
	return content.String()
}

// PromptProject asks for the warehouse project once.
func PromptProject(ctx context.Context, recent []string, lister ProjectLister) (string, error) {
	p := tea.NewProgram(NewProjectPromptModel(recent, lister), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("failed to run project prompt: %w", err)
	}
	m, ok := final.(ProjectPromptModel)
	if !ok {
		return "", ErrPromptCancelled
	}
	id, ok := m.Selected()
	if !ok {
		return "", ErrPromptCancelled
	}
	return id, nil
}
