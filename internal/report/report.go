// Package report renders a track comparison as JSON-friendly structs,
// plain text or CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cutlens/cutlens/internal/cutdiff"
)

// Entry is one comparison entry of a shot.
type Entry struct {
	Name     string   `json:"name"`
	Index    int      `json:"index"`
	DiffType string   `json:"diff_type"`
	Reasons  []string `json:"reasons,omitempty"`
	Omitted  bool     `json:"omitted,omitempty"`
	Repeated bool     `json:"repeated,omitempty"`

	CutIn  int `json:"cut_in"`
	CutOut int `json:"cut_out"`

	OldCutIn  *int `json:"old_cut_in,omitempty"`
	OldCutOut *int `json:"old_cut_out,omitempty"`
}

// Shot is one shot of the comparison with its aggregate positions.
type Shot struct {
	Name     string  `json:"name"`
	DiffType string  `json:"diff_type"`
	HeadIn   int     `json:"head_in"`
	CutIn    int     `json:"cut_in"`
	CutOut   int     `json:"cut_out"`
	TailOut  int     `json:"tail_out"`
	Duration int     `json:"duration"`
	Entries  []Entry `json:"entries"`
}

// Report is a full comparison summary.
type Report struct {
	Title       string         `json:"title"`
	Counts      map[string]int `json:"counts"`
	ActiveCount int            `json:"active_count"`
	TotalCount  int            `json:"total_count"`
	Shots       []Shot         `json:"shots"`
}

// Build flattens a track diff into a report titled title.
func Build(td *cutdiff.TrackDiff, title string) *Report {
	r := &Report{
		Title:       title,
		Counts:      make(map[string]int),
		ActiveCount: td.ActiveCount(),
		TotalCount:  td.TotalCount(),
	}
	for t, n := range td.Counts() {
		r.Counts[t.String()] = n
	}
	for _, group := range td.Groups() {
		shot := Shot{
			Name:     group.Name,
			DiffType: group.ShotDiffType().String(),
			HeadIn:   group.HeadIn().ToFrames(),
			CutIn:    group.CutIn().ToFrames(),
			CutOut:   group.CutOut().ToFrames(),
			TailOut:  group.TailOut().ToFrames(),
			Duration: group.Duration().ToFrames(),
		}
		for _, e := range group.Entries() {
			entry := Entry{
				Name:     e.UniqueName,
				Index:    e.Index,
				DiffType: e.DiffType().String(),
				Reasons:  e.Reasons(),
				Omitted:  e.AsOmitted(),
				Repeated: e.Repeated(),
				CutIn:    e.CutIn().ToFrames(),
				CutOut:   e.CutOut().ToFrames(),
			}
			if old, ok := e.OldCutIn(); ok {
				v := old.ToFrames()
				entry.OldCutIn = &v
			}
			if old, ok := e.OldCutOut(); ok {
				v := old.ToFrames()
				entry.OldCutOut = &v
			}
			shot.Entries = append(shot.Entries, entry)
		}
		r.Shots = append(r.Shots, shot)
	}
	return r
}

// countOrder fixes the order counts are listed in, worst news first.
var countOrder = []cutdiff.DiffType{
	cutdiff.Rescan,
	cutdiff.CutChange,
	cutdiff.New,
	cutdiff.NewInCut,
	cutdiff.Omitted,
	cutdiff.OmittedInCut,
	cutdiff.Reinstated,
	cutdiff.NoLink,
	cutdiff.NoChange,
}

// WriteText renders the report as an indented plain-text summary.
func (r *Report) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Cut summary for %s\n\n", r.Title); err != nil {
		return err
	}
	fmt.Fprintf(w, "  %d entries, %d active\n", r.TotalCount, r.ActiveCount)
	for _, t := range countOrder {
		if n := r.Counts[t.String()]; n > 0 {
			fmt.Fprintf(w, "  %d %s\n", n, t)
		}
	}
	for _, shot := range r.Shots {
		fmt.Fprintf(w, "\n%s (%s) cut %d-%d\n", shot.Name, shot.DiffType, shot.CutIn, shot.CutOut)
		for _, e := range shot.Entries {
			line := fmt.Sprintf("  %s [%s]", e.Name, e.DiffType)
			if len(e.Reasons) > 0 {
				line += ": " + strings.Join(e.Reasons, ", ")
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

var csvHeader = []string{
	"shot", "clip", "index", "diff_type", "reasons",
	"cut_in", "cut_out", "old_cut_in", "old_cut_out",
}

// WriteCSV renders one row per entry.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, shot := range r.Shots {
		for _, e := range shot.Entries {
			row := []string{
				shot.Name,
				e.Name,
				strconv.Itoa(e.Index),
				e.DiffType,
				strings.Join(e.Reasons, "; "),
				strconv.Itoa(e.CutIn),
				strconv.Itoa(e.CutOut),
				optFrame(e.OldCutIn),
				optFrame(e.OldCutOut),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func optFrame(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
