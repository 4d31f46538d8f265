package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"sheetsync/app"
	"sheetsync/domain/dataset"
	"sheetsync/domain/snapshot"
)

var (
	failStyle = color.New(color.FgRed, color.Bold).SprintFunc()
	okStyle   = color.New(color.FgGreen).SprintFunc()
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderDataset(w io.Writer, ds *dataset.Dataset) {
	if ds.Len() == 0 {
		_, _ = fmt.Fprintf(w, "%s: (0 rows)\n", ds.Name.Label())
		return
	}

	t := newTable(w)
	t.SetTitle(ds.Name.Label())

	header := make(table.Row, len(ds.Headers))
	for i, h := range ds.Headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, r := range ds.Rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		t.AppendRow(row)
	}

	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", ds.Len())
}

func renderLoad(w io.Writer, snap *snapshot.Snapshot) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Dataset", "Rows", "Status"})
	for _, e := range snap.Entries() {
		if e.OK() {
			t.AppendRow(table.Row{e.Name.Label(), e.Dataset.Len(), okStyle("loaded")})
			continue
		}
		status := "failed"
		if e.Failure != nil {
			status = fmt.Sprintf("%s: %s", e.Failure.Kind, e.Failure.Message)
		}
		t.AppendRow(table.Row{e.Name.Label(), "-", failStyle(status)})
	}
	t.SetCaption("snapshot %s loaded at %s", snap.ID, snap.LoadedAt)
	t.Render()
}

func renderSummary(w io.Writer, summary []app.DatasetSummary, loadedAt time.Time) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Dataset", "Rows", "Total Amount", "Pending"})
	for _, s := range summary {
		if s.Error != "" {
			t.AppendRow(table.Row{s.Label, failStyle(s.Error), "", ""})
			continue
		}
		amount, pending := "", ""
		switch s.Name {
		case dataset.Donations:
			amount = strconv.FormatFloat(s.Amount, 'f', -1, 64)
		case dataset.Volunteers:
			pending = strconv.Itoa(s.Pending)
		}
		t.AppendRow(table.Row{s.Label, s.Rows, amount, pending})
	}
	t.SetCaption("loaded at %s", loadedAt.Format(dataset.LongDisplayLayout))
	t.Render()
}
