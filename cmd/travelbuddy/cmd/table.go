package cmd

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/events"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func eventsTable(evs []events.LogEvent) string {
	rows := make([][]string, 0, len(evs))
	for _, e := range evs {
		dur := ""
		if e.HasDuration() {
			dur = fmt.Sprintf("%.2fs", e.Duration.Seconds())
		}
		rows = append(rows, []string{
			e.Timestamp.Format("15:04:05"),
			e.Agent,
			e.Operation,
			string(e.Status),
			dur,
			e.ShortDetails(),
		})
	}
	return renderTable(
		[]string{"Time", "Agent", "Operation", "Status", "Duration", "Details"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func summaryTable(sum events.Summary) string {
	agents := make([]string, 0, len(sum.ByAgent))
	for a := range sum.ByAgent {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	rows := make([][]string, 0, len(agents)+1)
	for _, a := range agents {
		rows = append(rows, []string{a, strconv.Itoa(sum.ByAgent[a])})
	}
	rows = append(rows, []string{"Total", strconv.Itoa(sum.Total)})
	return renderTable([]string{"Agent", "Events"}, rows, []columnAlignment{alignLeft, alignRight})
}

func conversationsTable(list []core.ConversationSummary) string {
	rows := make([][]string, 0, len(list))
	for _, c := range list {
		rows = append(rows, []string{
			c.ID,
			c.Title,
			strconv.Itoa(c.MessageCount),
			c.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Messages", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}
