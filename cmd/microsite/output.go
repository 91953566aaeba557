package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/debemdeboas/microsites/internal/model"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	draftStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	publishedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	headerRowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cellStyle      = lipgloss.NewStyle()
)

const dateFormat = "2006-01-02 15:04"

func renderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

func renderField(label, value string) string {
	return labelStyle.Render(label+":") + " " + value
}

func renderStatus(s model.PublishStatus) string {
	if s == model.StatusPublished {
		return publishedStyle.Render(string(s))
	}
	return draftStyle.Render(string(s))
}

func renderHeader(title string, fields []string) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")
	for _, f := range fields {
		sb.WriteString("  " + f + "\n")
	}
	return sb.String()
}

func renderProject(p *model.Project) string {
	fields := []string{
		renderField("ID", p.ID.String()),
		renderField("Owner", string(p.Owner)),
		renderField("Status", renderStatus(p.PublishStatus)),
	}
	if p.Description != nil {
		fields = append(fields, renderField("Description", *p.Description))
	}
	if p.URLSlug != nil {
		fields = append(fields, renderField("Slug", *p.URLSlug))
	}
	fields = append(fields,
		renderField("Theme", string(p.State.Theme)),
		renderField("Created", p.CreatedAt.Format(dateFormat)),
		renderField("Updated", p.UpdatedAt.Format(dateFormat)),
	)
	if !p.State.LastEdited.IsZero() {
		fields = append(fields, renderField("Last edited", p.State.LastEdited.Format(dateFormat)))
	}
	return renderHeader(p.Name, fields)
}

// stateMarkdown lays out a state the way its public page does.
func stateMarkdown(s model.ProjectState) string {
	var sb strings.Builder
	if s.Title != "" {
		sb.WriteString("# " + s.Title + "\n\n")
	}
	if s.Tagline != "" {
		sb.WriteString("_" + s.Tagline + "_\n\n")
	}
	sb.WriteString(s.Body)
	return sb.String()
}

func renderProjectTable(list []model.Project) string {
	if len(list) == 0 {
		return "No projects found."
	}
	rows := make([][]string, len(list))
	for i, p := range list {
		rows[i] = []string{p.ID.String(), p.Name, renderStatus(p.PublishStatus), p.UpdatedAt.Format(dateFormat)}
	}
	return renderTable([]string{"ID", "Name", "Status", "Updated"}, rows)
}

func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Headers(headers...).
		Rows(rows...).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerRowStyle
			}
			return cellStyle
		})
	return t.Render()
}
