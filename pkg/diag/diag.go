// Package diag renders human-readable reports about handle populations and
// collection passes. It is a consumer of the scanning subsystem, never a
// dependency of it.
package diag

import (
	"fmt"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gcforge/handlekit/pkg/gc"
)

// PassStats records one scan pass of one collection.
type PassStats struct {
	Name     string
	Duration time.Duration
}

// Report summarizes one collection.
type Report struct {
	Collection int
	Condemned  int
	MaxGen     int
	Workers    int
	Concurrent bool

	// Census is the live handle population by type at the end of the
	// collection.
	Census [gc.TypeCount]int

	Passes []PassStats

	PromotedObjects     int
	PromotedBytes       uint64
	WeakSevered         int
	DependentIterations int
	BridgeCandidates    int
	BridgeUnreachable   int
}

// printer formats counts with grouping separators so large handle
// populations stay readable.
var printer = message.NewPrinter(language.English)

// Write renders the report as text.
func (r *Report) Write(w io.Writer) error {
	mode := "blocking"
	if r.Concurrent {
		mode = "concurrent"
	}
	if _, err := printer.Fprintf(w, "collection %d: gen %d/%d, %s, %d worker(s)\n",
		r.Collection, r.Condemned, r.MaxGen, mode, r.Workers); err != nil {
		return err
	}
	if _, err := printer.Fprintf(w, "  promoted %d object(s), %d byte(s)\n",
		r.PromotedObjects, r.PromotedBytes); err != nil {
		return err
	}
	if _, err := printer.Fprintf(w, "  severed %d weak handle(s)\n", r.WeakSevered); err != nil {
		return err
	}
	if r.DependentIterations > 0 {
		if _, err := printer.Fprintf(w, "  dependent fixed point in %d round(s)\n",
			r.DependentIterations); err != nil {
			return err
		}
	}
	if r.BridgeCandidates > 0 {
		if _, err := printer.Fprintf(w, "  bridge: %d candidate(s), %d unreachable\n",
			r.BridgeCandidates, r.BridgeUnreachable); err != nil {
			return err
		}
	}
	for _, p := range r.Passes {
		if _, err := printer.Fprintf(w, "  %-18s %12v\n",
			p.Name, p.Duration.Round(time.Microsecond)); err != nil {
			return err
		}
	}
	return WriteCensus(w, r.Census)
}

// WriteCensus renders a live-handle population table, skipping empty types.
func WriteCensus(w io.Writer, census [gc.TypeCount]int) error {
	total := 0
	for _, n := range census {
		total += n
	}
	if _, err := printer.Fprintf(w, "  handles: %d live\n", total); err != nil {
		return err
	}
	for t := gc.Type(0); t < gc.TypeCount; t++ {
		if census[t] == 0 {
			continue
		}
		if _, err := printer.Fprintf(w, "    %-16s %d\n", t.String(), census[t]); err != nil {
			return err
		}
	}
	return nil
}

// TraitTable renders the handle type model: one row per type with its
// extra-word trait.
func TraitTable(w io.Writer) error {
	for _, t := range gc.AllTypes() {
		extra := "-"
		if t.HasExtraInfo() {
			extra = "extra-info"
		}
		if _, err := fmt.Fprintf(w, "%-16s %s\n", t.String(), extra); err != nil {
			return err
		}
	}
	return nil
}
