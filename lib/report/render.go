// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// noTraffic is the body every renderer emits for an empty store.
const noTraffic = "No traffic observed."

// timeFormat is the timestamp layout used throughout the report.
const timeFormat = "2006-01-02 15:04"

// RenderTable writes the report as terminal tables. With plain set,
// tab-separated values are written instead, for piped output.
func RenderTable(w io.Writer, report *Report, plain bool) error {
	writeRow := func(cells ...string) {
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	writeTable := func(title string, header []string, rows [][]string) {
		fmt.Fprintf(w, "%s\n", title)
		if plain {
			writeRow(header...)
			for _, row := range rows {
				writeRow(row...)
			}
			fmt.Fprintln(w)
			return
		}
		table := tablewriter.NewWriter(w)
		table.SetHeader(header)
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(false)
		for _, row := range rows {
			table.Append(row)
		}
		table.Render()
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Mesh network report, generated %s\n", report.GeneratedAt.Format(timeFormat))
	if report.Empty {
		fmt.Fprintln(w, noTraffic)
		return nil
	}

	fmt.Fprintf(w, "Observation period %s to %s, %d packets, %d active nodes, %d active links\n\n",
		report.PeriodStart.Format(timeFormat), report.PeriodEnd.Format(timeFormat),
		report.TotalPackets, report.ActiveNodes, report.ActiveLinks)

	if report.HasDecodeStats {
		fmt.Fprintf(w, "Decoded %d, encrypted %d (%s private)\n\n",
			report.Decoded, report.Encrypted,
			percentString(report.Encrypted, report.Decoded+report.Encrypted))
	}

	writeTable("Packets per hour by type", []string{"Type", "Count", "Per hour"}, ratesRows(report))
	writeTable("Traffic by hour of day", []string{"Hour", "Packets", "Senders"}, hourlyRows(report))
	writeTable("Packets per day", []string{"Day", "Packets"}, dailyRows(report))
	writeTable("Top senders", []string{"Node", "Name", "Packets"}, topSenderRows(report))
	writeTable("Top sender/type pairs", []string{"Node", "Name", "Type", "Packets"}, topPairRows(report))
	writeTable("Mesh load by node", []string{"Node", "Name", "Role", "Packets", "Load", "Median intervals"}, loadRows(report))
	writeTable("Known nodes", []string{"Node", "Short", "Name", "Role", "Last seen", "Position"}, nodeRows(report))
	return nil
}

// RenderMarkdown writes the report as a Markdown document with GFM
// tables.
func RenderMarkdown(w io.Writer, report *Report) error {
	_, err := io.WriteString(w, Markdown(report))
	return err
}

// RenderHTML converts the Markdown rendering to a standalone HTML
// document.
func RenderHTML(w io.Writer, report *Report) error {
	markdown := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body strings.Builder
	if err := markdown.Convert([]byte(Markdown(report)), &body); err != nil {
		return fmt.Errorf("report: rendering html: %w", err)
	}

	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Mesh network report</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 0.3em 0.6em; text-align: left; }
th { background: #eee; }
</style>
</head>
<body>
%s</body>
</html>
`, body.String())
	if err != nil {
		return fmt.Errorf("report: writing html: %w", err)
	}
	return nil
}

// Markdown returns the report as a Markdown document.
func Markdown(report *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Mesh network report\n\nGenerated %s\n\n", report.GeneratedAt.Format(timeFormat))

	if report.Empty {
		b.WriteString(noTraffic + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Observation period %s to %s. %d packets, %d active nodes, %d active links.\n\n",
		report.PeriodStart.Format(timeFormat), report.PeriodEnd.Format(timeFormat),
		report.TotalPackets, report.ActiveNodes, report.ActiveLinks)

	if report.HasDecodeStats {
		fmt.Fprintf(&b, "Decoded %d, encrypted %d (%s private).\n\n",
			report.Decoded, report.Encrypted,
			percentString(report.Encrypted, report.Decoded+report.Encrypted))
	}

	writeMarkdownTable(&b, "Packets per hour by type", []string{"Type", "Count", "Per hour"}, ratesRows(report))
	writeMarkdownTable(&b, "Traffic by hour of day", []string{"Hour", "Packets", "Senders"}, hourlyRows(report))
	writeMarkdownTable(&b, "Packets per day", []string{"Day", "Packets"}, dailyRows(report))
	writeMarkdownTable(&b, "Top senders", []string{"Node", "Name", "Packets"}, topSenderRows(report))
	writeMarkdownTable(&b, "Top sender/type pairs", []string{"Node", "Name", "Type", "Packets"}, topPairRows(report))
	writeMarkdownTable(&b, "Mesh load by node", []string{"Node", "Name", "Role", "Packets", "Load", "Median intervals"}, loadRows(report))
	writeMarkdownTable(&b, "Known nodes", []string{"Node", "Short", "Name", "Role", "Last seen", "Position"}, nodeRows(report))
	return b.String()
}

func writeMarkdownTable(b *strings.Builder, title string, header []string, rows [][]string) {
	fmt.Fprintf(b, "## %s\n\n", title)
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		for i, cell := range row {
			row[i] = strings.ReplaceAll(cell, "|", "\\|")
		}
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	b.WriteString("\n")
}

func ratesRows(report *Report) [][]string {
	rows := make([][]string, 0, len(report.Rates))
	for _, rate := range report.Rates {
		rows = append(rows, []string{
			rate.Name,
			fmt.Sprintf("%d", rate.Count),
			fmt.Sprintf("%.1f", rate.PerHour),
		})
	}
	return rows
}

func hourlyRows(report *Report) [][]string {
	rows := make([][]string, 0, 24)
	for hour := 0; hour < 24; hour++ {
		rows = append(rows, []string{
			fmt.Sprintf("%02d", hour),
			fmt.Sprintf("%d", report.HourlyPackets[hour]),
			fmt.Sprintf("%d", report.HourlySenders[hour]),
		})
	}
	return rows
}

func dailyRows(report *Report) [][]string {
	rows := make([][]string, 0, len(report.DailyPackets))
	for _, day := range report.DailyPackets {
		rows = append(rows, []string{day.Day, fmt.Sprintf("%d", day.Count)})
	}
	return rows
}

func topSenderRows(report *Report) [][]string {
	rows := make([][]string, 0, len(report.TopSenders))
	for _, sender := range report.TopSenders {
		rows = append(rows, []string{
			fmt.Sprintf("%08X", sender.ID),
			sender.LongName,
			fmt.Sprintf("%d", sender.Count),
		})
	}
	return rows
}

func topPairRows(report *Report) [][]string {
	rows := make([][]string, 0, len(report.TopSenderTypes))
	for _, pair := range report.TopSenderTypes {
		rows = append(rows, []string{
			fmt.Sprintf("%08X", pair.ID),
			pair.LongName,
			pair.PortName,
			fmt.Sprintf("%d", pair.Count),
		})
	}
	return rows
}

func loadRows(report *Report) [][]string {
	rows := make([][]string, 0, len(report.NodeLoads))
	for _, load := range report.NodeLoads {
		var intervals []string
		for _, interval := range load.Intervals {
			intervals = append(intervals, fmt.Sprintf("%s %s (n=%d)",
				interval.PortName, formatDuration(interval.Median), interval.Samples))
		}
		rows = append(rows, []string{
			fmt.Sprintf("%08X", load.ID),
			load.LongName,
			load.RoleName,
			fmt.Sprintf("%d", load.Count),
			fmt.Sprintf("%.2f%%", load.LoadPercent),
			strings.Join(intervals, ", "),
		})
	}
	return rows
}

func nodeRows(report *Report) [][]string {
	rows := make([][]string, 0, len(report.Nodes))
	for _, node := range report.Nodes {
		position := ""
		if node.HasPosition {
			position = "yes"
		}
		seen := ""
		if node.Seen > 0 {
			seen = time.Unix(node.Seen, 0).In(report.GeneratedAt.Location()).Format(timeFormat)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%08X", node.ID),
			node.ShortName,
			node.LongName,
			node.RoleName,
			seen,
			position,
		})
	}
	return rows
}

func percentString(part, total int64) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", 100*float64(part)/float64(total))
}

// formatDuration renders a duration in the largest useful unit.
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	case d >= time.Minute:
		return fmt.Sprintf("%.1fm", d.Minutes())
	default:
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
}
