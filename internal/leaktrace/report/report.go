// Package report renders leak snapshots for humans. It is display only:
// nothing here feeds back into tracking, and nothing here runs on the
// allocation path.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ryanuber/columnize"

	"github.com/kolkov/leaktracer/internal/leaktrace/record"
)

// Group aggregates leak candidates that share an allocation site. Records
// group together when their captured stacks hash identically.
type Group struct {
	// Count is the number of live allocations from this site.
	Count int

	// Bytes is their combined requested size.
	Bytes uint64

	// Sample is one representative record; its stack is the group's stack.
	Sample record.Allocation
}

// Aggregate folds a snapshot into per-site groups, largest leak first
// (by bytes, then count, then stack hash for a stable order).
func Aggregate(leaks map[uintptr]record.Allocation) []Group {
	byStack := make(map[uint64]*Group)
	for _, rec := range leaks {
		h := rec.Frames.Hash()
		g, ok := byStack[h]
		if !ok {
			g = &Group{Sample: rec}
			byStack[h] = g
		}
		g.Count++
		g.Bytes += uint64(rec.Size)
	}

	out := make([]Group, 0, len(byStack))
	for _, g := range byStack {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Sample.Frames.Hash() < out[j].Sample.Frames.Hash()
	})
	return out
}

// Summary formats a snapshot as one table row per allocation site:
//
//	BYTES  COUNT  SITE
//	8192   2      main.loadIndex (/path/to/index.go:88)
//	512    1      main.buildCache (/path/to/cache.go:41)
func Summary(leaks map[uintptr]record.Allocation) string {
	if len(leaks) == 0 {
		return "no leak candidates\n"
	}

	rows := []string{"BYTES|COUNT|SITE"}
	for _, g := range Aggregate(leaks) {
		rows = append(rows, fmt.Sprintf("%d|%d|%s", g.Bytes, g.Count, site(g.Sample)))
	}
	return columnize.SimpleFormat(rows) + "\n"
}

// Write dumps every leak candidate with its full stack, largest group
// first, in the style of the per-record String rendering.
func Write(w io.Writer, leaks map[uintptr]record.Allocation) error {
	if len(leaks) == 0 {
		_, err := io.WriteString(w, "no leak candidates\n")
		return err
	}

	groups := Aggregate(leaks)
	for i, g := range groups {
		_, err := fmt.Fprintf(w, "#%d: %d bytes in %d allocation(s) at\n%s",
			i+1, g.Bytes, g.Count, g.Sample.Frames.String())
		if err != nil {
			return err
		}
	}
	return nil
}

// site names the innermost resolvable frame of a record's stack.
func site(rec record.Allocation) string {
	for _, f := range rec.Frames.Frames() {
		if f.Function == "" {
			continue
		}
		return fmt.Sprintf("%s (%s:%d)", f.Function, f.File, f.Line)
	}
	if rec.Frames.Len() == 0 {
		return "<no stack>"
	}
	pcs := rec.Frames.PCs()
	parts := make([]string, len(pcs))
	for i, pc := range pcs {
		parts[i] = fmt.Sprintf("0x%x", pc)
	}
	return strings.Join(parts, " ")
}
