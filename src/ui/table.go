package ui

import (
	"strings"

	"cameio-cli/src/contracts"
	"cameio-cli/src/service"
)

// TaskLine is one row of the command overview.
type TaskLine struct {
	Name    string
	Summary string
}

// TaskList renders commands with dot leaders so summaries line up.
func (s *StyleConfig) TaskList(tasks []TaskLine) string {
	width := 0
	for _, t := range tasks {
		if w := VisualWidth(t.Name); w > width {
			width = w
		}
	}
	width += 6

	var b strings.Builder
	for _, t := range tasks {
		b.WriteString("  ")
		b.WriteString(s.HelpStyle().Render(DotLeader(t.Name, width)))
		b.WriteString(t.Summary)
		b.WriteString("\n")
	}
	return b.String()
}

// VersionsTable renders uploaded versions; the active one is starred.
func (s *StyleConfig) VersionsTable(versions []service.Version) string {
	var b strings.Builder
	b.WriteString(strings.Join([]string{"    UUID   ", " Created ", "            Note "}, "\t"))
	b.WriteString("\n")
	b.WriteString(strings.Join([]string{"------------", "----------", "----------------------------"}, "\t"))
	b.WriteString("\n")

	for _, v := range versions {
		marker := "  "
		id := Truncate(v.UUID, 8, false)
		if v.Active {
			marker = " *"
			id = s.AccentStyle().Render(id)
		}
		note := Truncate(v.Note, 25, false)
		if note == "" {
			note = "\t"
		}
		b.WriteString(strings.Join([]string{marker + " " + id, " " + v.Created, " " + note}, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

// BuildsTable renders build history rows, newest first.
func (s *StyleConfig) BuildsTable(events []contracts.BuildEvent) string {
	var b strings.Builder
	b.WriteString(BuildsHeader() + "\n")
	for _, e := range events {
		b.WriteString(s.BuildRow(e) + "\n")
	}
	return b.String()
}

// BuildsHeader is the column header of BuildsTable.
func BuildsHeader() string {
	return Pad("TIME", 22) + Pad("APP", 12) + Pad("PLATFORM", 10) + Pad("MODE", 9) + Pad("STATUS", 11) + "DETAIL"
}

// BuildRow renders one event as a BuildsTable row.
func (s *StyleConfig) BuildRow(e contracts.BuildEvent) string {
	detail := e.Message
	if e.PackagePath != "" {
		detail = e.PackagePath
	}
	status := e.Status
	switch status {
	case "success":
		status = s.SuccessStyle().Render(status)
	case "failed", "error":
		status = s.ErrorStyle().Render(status)
	}
	return Pad(e.Timestamp, 22) +
		Pad(Truncate(e.AppID, 10, true), 12) +
		Pad(e.Platform, 10) +
		Pad(e.Mode, 9) +
		Pad(status, 11) +
		Truncate(detail, 60, true)
}
