// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Mictronics/mesh-observer/lib/meshdb"
	"github.com/Mictronics/mesh-observer/lib/meshlog"
	"github.com/Mictronics/mesh-observer/lib/report"
)

// viewTab identifies which table is visible.
type viewTab int

const (
	tabNodes viewTab = iota
	tabLinks
)

// chromeHeight is the number of lines around the table: tab bar,
// status bar, help line.
const chromeHeight = 3

// refreshMsg carries one snapshot of the database. A failed query
// leaves the previous rows on screen and shows the error in the
// status bar.
type refreshMsg struct {
	nodes  []meshdb.Node
	links  []meshdb.Link
	counts meshdb.Counts
	taken  time.Time
	err    error
}

// tickMsg drives the periodic refresh.
type tickMsg time.Time

// model is the top-level bubbletea model for the viewer.
type model struct {
	store    *meshdb.Store
	interval time.Duration
	theme    theme
	keys     keyMap

	activeTab   viewTab
	nodes       table.Model
	links       table.Model
	counts      meshdb.Counts
	lastRefresh time.Time
	loadError   string

	width  int
	height int
	ready  bool
}

func newModel(store *meshdb.Store, interval time.Duration, th theme) model {
	return model{
		store:    store,
		interval: interval,
		theme:    th,
		keys:     defaultKeyMap,
		nodes:    newDataTable(th, nodeColumns()),
		links:    newDataTable(th, linkColumns()),
	}
}

func nodeColumns() []table.Column {
	return []table.Column{
		{Title: "Node", Width: 8},
		{Title: "Short", Width: 5},
		{Title: "Name", Width: 28},
		{Title: "Role", Width: 14},
		{Title: "Seen", Width: 8},
		{Title: "Position", Width: 20},
	}
}

func linkColumns() []table.Column {
	return []table.Column{
		{Title: "Source", Width: 8},
		{Title: "Destination", Width: 11},
		{Title: "SNR", Width: 10},
		{Title: "Seen", Width: 8},
	}
}

func newDataTable(th theme, columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	if !th.monochromatic {
		styles.Header = styles.Header.
			Bold(true).
			Foreground(th.HeaderColor).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(th.BorderColor).
			BorderBottom(true)
		styles.Selected = styles.Selected.
			Foreground(th.SelectedFg).
			Background(th.SelectedBg)
	}
	t.SetStyles(styles)
	return t
}

// Init implements tea.Model: load immediately, then tick.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.tick())
}

// load queries one snapshot. Runs on the bubbletea command goroutine,
// never on the update loop.
func (m model) load() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		msg := refreshMsg{taken: time.Now()}
		msg.nodes, msg.err = store.ListNodes(ctx, true)
		if msg.err == nil {
			msg.links, msg.err = store.ListLinks(ctx)
		}
		if msg.err == nil {
			var nodes, links int64
			nodes, links, msg.err = store.ActiveCounts(ctx)
			msg.counts = meshdb.Counts{Nodes: nodes, Links: links}
		}
		return msg
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(message, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(message, m.keys.TabNodes):
			m.activeTab = tabNodes
		case key.Matches(message, m.keys.TabLinks):
			m.activeTab = tabLinks
		case key.Matches(message, m.keys.TabToggle):
			if m.activeTab == tabNodes {
				m.activeTab = tabLinks
			} else {
				m.activeTab = tabNodes
			}
		case key.Matches(message, m.keys.Refresh):
			return m, m.load()
		default:
			// Navigation keys go to the visible table.
			var cmd tea.Cmd
			if m.activeTab == tabNodes {
				m.nodes, cmd = m.nodes.Update(message)
			} else {
				m.links, cmd = m.links.Update(message)
			}
			return m, cmd
		}

	case tickMsg:
		return m, tea.Batch(m.load(), m.tick())

	case refreshMsg:
		if message.err != nil {
			m.loadError = message.err.Error()
			return m, nil
		}
		m.loadError = ""
		m.counts = message.counts
		m.lastRefresh = message.taken
		m.nodes.SetRows(nodeRows(message.nodes, message.taken))
		m.links.SetRows(linkRows(message.links, message.taken))

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height
		m.ready = true
		height := m.height - chromeHeight
		if height < 3 {
			height = 3
		}
		m.nodes.SetWidth(m.width)
		m.nodes.SetHeight(height)
		m.links.SetWidth(m.width)
		m.links.SetHeight(height)
	}

	return m, nil
}

func nodeRows(nodes []meshdb.Node, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(nodes))
	for _, node := range nodes {
		position := ""
		if node.HasPosition {
			position = fmt.Sprintf("%.5f %.5f", node.Latitude, node.Longitude)
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%08X", node.ID),
			node.ShortName,
			node.LongName,
			report.RoleName(node.Role),
			formatAge(node.Seen, now),
			position,
		})
	}
	return rows
}

func linkRows(links []meshdb.Link, now time.Time) []table.Row {
	rows := make([]table.Row, 0, len(links))
	for _, link := range links {
		rows = append(rows, table.Row{
			fmt.Sprintf("%08X", link.Source),
			fmt.Sprintf("%08X", link.Destination),
			formatSNR(link.SNR),
			formatAge(link.Seen, now),
		})
	}
	return rows
}

// View implements tea.Model.
func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.tabBar())
	b.WriteByte('\n')

	if m.activeTab == tabNodes {
		b.WriteString(m.nodes.View())
	} else {
		b.WriteString(m.links.View())
	}
	b.WriteByte('\n')

	b.WriteString(m.statusBar())
	return b.String()
}

func (m model) tabBar() string {
	styleFor := func(tab viewTab) lipgloss.Style {
		if tab == m.activeTab {
			return m.theme.ActiveTab
		}
		return m.theme.InactiveTab
	}
	return styleFor(tabNodes).Render("1 Nodes") + styleFor(tabLinks).Render("2 Links")
}

func (m model) statusBar() string {
	if m.loadError != "" {
		return m.theme.ErrorText.Render("refresh failed: " + m.loadError)
	}
	status := fmt.Sprintf(" %d nodes, %d links active", m.counts.Nodes, m.counts.Links)
	if !m.lastRefresh.IsZero() {
		status += " · refreshed " + m.lastRefresh.Format("15:04:05")
	}
	help := m.theme.HelpText.Render("  1/2/Tab switch · r refresh · q quit")
	return m.theme.StatusBar.Render(status) + help
}

// formatAge renders how long ago a unix timestamp was.
func formatAge(seen int64, now time.Time) string {
	if seen == 0 {
		return "never"
	}
	age := now.Sub(time.Unix(seen, 0))
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%.1fh", age.Hours())
	default:
		return fmt.Sprintf("%.1fd", age.Hours()/24)
	}
}

// formatSNR renders an SNR sample, with "?" for the unknown sentinel.
func formatSNR(snr float64) string {
	if snr == meshlog.SNRUnknown {
		return "? dB"
	}
	return fmt.Sprintf("%.2f dB", snr)
}
