package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gcforge/handlekit/pkg/gc"
)

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("handlescope"))
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(fmt.Sprintf("next condemned gen %d/%d", m.condemned, m.maxGen)))
	if m.auto {
		b.WriteString("  ")
		b.WriteString(autoOnStyle.Render("AUTO"))
	}
	if m.running {
		b.WriteString("  ")
		b.WriteString(statusStyle.Render("collecting..."))
	}
	b.WriteString("\n\n")

	left := m.collectionPane()
	right := m.censusPane()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	b.WriteString("\n")
	b.WriteString(m.historyPane())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// collectionPane renders the latest report's pass breakdown.
func (m Model) collectionPane() string {
	var b strings.Builder
	b.WriteString(paneTitleStyle.Render("last collection"))
	b.WriteString("\n")

	if len(m.reports) == 0 {
		b.WriteString(labelStyle.Render("none yet, press space"))
		return paneStyle.Render(b.String())
	}

	r := m.reports[len(m.reports)-1]
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("collection", valueStyle.Render(fmt.Sprintf("#%d gen %d/%d", r.Collection, r.Condemned, r.MaxGen)))
	row("promoted", promotedStyle.Render(fmt.Sprintf("%d objects, %d bytes", r.PromotedObjects, r.PromotedBytes)))
	row("severed", severedStyle.Render(fmt.Sprintf("%d weak", r.WeakSevered)))
	row("dependent", valueStyle.Render(fmt.Sprintf("%d rounds", r.DependentIterations)))
	if r.BridgeCandidates > 0 {
		row("bridge", valueStyle.Render(fmt.Sprintf("%d candidates, %d dead", r.BridgeCandidates, r.BridgeUnreachable)))
	}
	row("objects", valueStyle.Render(fmt.Sprintf("%d live", m.eng.Live())))
	b.WriteString("\n")
	for _, p := range r.Passes {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", p.Name)))
		b.WriteString(valueStyle.Render(p.Duration.Round(time.Microsecond).String()))
		b.WriteString("\n")
	}
	return paneStyle.Render(strings.TrimRight(b.String(), "\n"))
}

// censusPane renders the live handle population by type.
func (m Model) censusPane() string {
	var b strings.Builder
	b.WriteString(paneTitleStyle.Render("handle census"))
	b.WriteString("\n")

	census := m.sub.Census()
	total := 0
	for t := gc.Type(0); t < gc.TypeCount; t++ {
		if census[t] == 0 {
			continue
		}
		total += census[t]
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-16s", t.String())))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%6d", census[t])))
		b.WriteString("\n")
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-16s", "total")))
	b.WriteString(promotedStyle.Render(fmt.Sprintf("%6d", total)))
	return paneStyle.Render(b.String())
}

// historyPane renders a one-line-per-collection scrollback.
func (m Model) historyPane() string {
	var b strings.Builder
	b.WriteString(paneTitleStyle.Render("history"))
	b.WriteString("\n")

	if len(m.reports) == 0 {
		b.WriteString(labelStyle.Render("-"))
		return paneStyle.Render(b.String())
	}

	shown := m.reports
	visible := m.height - 22
	if visible < 3 {
		visible = 3
	}
	if len(shown) > visible {
		shown = shown[len(shown)-visible:]
	}
	for i := len(shown) - 1; i >= 0; i-- {
		r := shown[i]
		b.WriteString(labelStyle.Render(fmt.Sprintf("#%-4d", r.Collection)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("gen %d  ", r.Condemned)))
		b.WriteString(promotedStyle.Render(fmt.Sprintf("+%-7d", r.PromotedObjects)))
		b.WriteString(severedStyle.Render(fmt.Sprintf("-%d weak", r.WeakSevered)))
		b.WriteString("\n")
	}
	return paneStyle.Render(strings.TrimRight(b.String(), "\n"))
}
