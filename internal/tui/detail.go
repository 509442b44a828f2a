package tui

import (
	"fmt"
	"sort"
	"strings"


	"cc_activity_mon/internal/session"
)

// renderDetailPanel renders the selected event's payload beside the feed
func (m Model) renderDetailPanel(width, height int) string {
	var b strings.Builder

	b.WriteString(m.theme.DetailLabel.Render("Event Details"))
	b.WriteString("\n\n")

	e, ok := m.SelectedEvent()
	if !ok {
		b.WriteString(m.theme.Muted.Render("No event selected"))
	} else {
		b.WriteString(m.formatEvent(e, width-4))
	}

	return m.theme.DetailBorder.Width(width - 2).Height(height - 2).Render(b.String())
}

// detailFields lists the payload keys shown first for each kind
var detailFields = map[session.EventKind][]string{
	session.UserPrompt:        {"prompt"},
	session.AssistantResponse: {"response"},
	session.FileRead:          {"file_path", "num_lines", "content"},
	session.FileWrite:         {"file_path"},
	session.FileEdit:          {"file_path"},
	session.BashCommand:       {"command", "description", "pattern", "output"},
	session.WebFetch:          {"url"},
}

func (m Model) formatEvent(e session.Event, width int) string {
	var b strings.Builder

	style, group := m.theme.ForEvent(e)
	b.WriteString(style.Render(e.Kind.String()))
	if group != "" {
		b.WriteString(m.theme.Muted.Render(" (" + group + ")"))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.Muted.Render(e.Timestamp.Local().Format("2006-01-02 15:04:05") + "  " + e.SessionID))
	b.WriteString("\n\n")

	if e.Kind == session.BashCommand {
		if warnings := analyzeBashSecurity(e.Field("command")); len(warnings) > 0 {
			danger := m.theme.Error.UnsetPadding()
			b.WriteString(danger.Render("! Security Warnings"))
			b.WriteString("\n")
			for _, w := range warnings {
				b.WriteString(danger.Render("  - " + w))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	shown := make(map[string]bool)
	for _, k := range detailFields[e.Kind] {
		if v, ok := e.Payload[k]; ok {
			m.writeField(&b, k, v, width)
			shown[k] = true
		}
	}

	// Remaining keys in a stable order
	var rest []string
	for k := range e.Payload {
		if !shown[k] && k != "tool" {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	for _, k := range rest {
		m.writeField(&b, k, e.Payload[k], width)
	}
	return b.String()
}

func (m Model) writeField(b *strings.Builder, name string, v any, width int) {
	text := fmt.Sprint(v)
	if text == "" {
		return
	}
	b.WriteString(m.theme.DetailLabel.Render(name + ":"))
	b.WriteString("\n")
	b.WriteString(m.theme.Normal.Render(wrapText(truncate(text, 600), width)))
	b.WriteString("\n\n")
}

// securityChecks flag shell commands worth a second look
var securityChecks = []struct {
	check   func(cmd string) bool
	warning string
}{
	{func(c string) bool { return hasCommand(c, "rm") && (strings.Contains(c, "-rf") || strings.Contains(c, "-r ")) }, "Recursive file deletion"},
	{func(c string) bool { return hasCommand(c, "sudo") }, "Runs with elevated privileges"},
	{func(c string) bool { return hasCommand(c, "chmod") || hasCommand(c, "chown") }, "Changes file permissions"},
	{func(c string) bool {
		return strings.Contains(c, "|") && (strings.Contains(c, "curl") || strings.Contains(c, "wget")) &&
			(strings.Contains(c, "| sh") || strings.Contains(c, "| bash") || strings.Contains(c, "|sh") || strings.Contains(c, "|bash"))
	}, "Downloads and pipes to shell"},
	{func(c string) bool { return hasCommand(c, "dd") || hasCommand(c, "mkfs") }, "Direct disk operation"},
	{func(c string) bool {
		return strings.Contains(c, "git push") && (strings.Contains(c, "--force") || strings.Contains(c, " -f"))
	}, "Force push to remote"},
	{func(c string) bool { return strings.Contains(c, "git reset --hard") }, "Hard reset (discards changes)"},
}

// analyzeBashSecurity returns security warnings for a bash command
func analyzeBashSecurity(command string) []string {
	var warnings []string
	cmd := strings.ToLower(command)
	for _, sc := range securityChecks {
		if sc.check(cmd) {
			warnings = append(warnings, sc.warning)
		}
	}
	return warnings
}

// hasCommand checks whether name appears as a word starting a command
func hasCommand(cmd, name string) bool {
	return strings.HasPrefix(cmd, name+" ") || strings.Contains(cmd, " "+name+" ") ||
		strings.Contains(cmd, ";"+name+" ") || strings.Contains(cmd, "|"+name+" ")
}

// wrapText hard-wraps text to width, keeping existing line breaks
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		r := []rune(line)
		for len(r) > width {
			out = append(out, string(r[:width]))
			r = r[width:]
		}
		out = append(out, string(r))
	}
	return strings.Join(out, "\n")
}
