// Command embertrace parses a kernel trace dump (the diag "trace" command's
// output, one event per line) and aggregates it into per-task and drain-pass
// statistics, as CSV on stdout or into a file.
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/trees/redblacktree"
)

func main() {
	var (
		inPath  = flag.String("in", "", "Trace dump file (default stdin).")
		outPath = flag.String("out", "", "CSV output file (default stdout).")
	)
	flag.Parse()

	in := io.Reader(os.Stdin)
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			fatalf("open: %v", err)
		}
		defer f.Close()
		in = f
	}

	events, err := parseTrace(in)
	if err != nil {
		fatalf("parse: %v", err)
	}

	out := io.Writer(os.Stdout)
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fatalf("create: %v", err)
		}
		defer f.Close()
		out = f
	}

	if err := writeReport(out, events); err != nil {
		fatalf("write: %v", err)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

type event struct {
	seq  uint64
	tick uint64
	kind string
	task uint32
	arg  uint64
}

// parseLine decodes one "seq=N tick=N kind=S task=N arg=N" trace line.
func parseLine(line string) (event, error) {
	var ev event
	seen := map[string]bool{}
	for _, field := range strings.Fields(line) {
		k, v, ok := strings.Cut(field, "=")
		if !ok {
			return ev, fmt.Errorf("bad field %q", field)
		}
		seen[k] = true
		switch k {
		case "kind":
			ev.kind = v
		case "seq", "tick", "task", "arg":
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return ev, fmt.Errorf("bad %s %q: %w", k, v, err)
			}
			switch k {
			case "seq":
				ev.seq = n
			case "tick":
				ev.tick = n
			case "task":
				ev.task = uint32(n)
			case "arg":
				ev.arg = n
			}
		default:
			return ev, fmt.Errorf("unknown field %q", field)
		}
	}
	for _, k := range []string{"seq", "tick", "kind", "task", "arg"} {
		if !seen[k] {
			return ev, fmt.Errorf("missing field %q", k)
		}
	}
	return ev, nil
}

type traceKey struct {
	tick uint64
	seq  uint64
}

func keyCmp(a, b any) int {
	ka, kb := a.(traceKey), b.(traceKey)
	switch {
	case ka.tick < kb.tick:
		return -1
	case ka.tick > kb.tick:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// parseTrace reads all lines and returns the events ordered by (tick, seq).
// Dumps stitched together from several snapshots arrive unordered; the tree
// restores the timeline.
func parseTrace(r io.Reader) ([]event, error) {
	rbt := redblacktree.NewWith(keyCmp)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		ev, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rbt.Put(traceKey{ev.tick, ev.seq}, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	events := make([]event, 0, rbt.Size())
	it := rbt.Iterator()
	for it.Next() {
		events = append(events, it.Value().(event))
	}
	return events, nil
}

type taskAgg struct {
	switches uint64
	preempts uint64
	blocks   uint64
	unblocks uint64
}

type report struct {
	perTask     map[uint32]*taskAgg
	taskOrder   []uint32
	drainPasses uint64
	drainCycles uint64
	drainMax    uint64
	softirqs    uint64
}

func aggregate(events []event) report {
	rep := report{perTask: map[uint32]*taskAgg{}}
	touch := func(task uint32) *taskAgg {
		agg, ok := rep.perTask[task]
		if !ok {
			agg = &taskAgg{}
			rep.perTask[task] = agg
			rep.taskOrder = append(rep.taskOrder, task)
		}
		return agg
	}

	for _, ev := range events {
		switch ev.kind {
		case "switch":
			touch(ev.task).switches++
		case "preempt":
			touch(ev.task).preempts++
		case "block":
			touch(ev.task).blocks++
		case "unblock":
			touch(ev.task).unblocks++
		case "drain":
			rep.drainPasses++
			rep.drainCycles += ev.arg
			if ev.arg > rep.drainMax {
				rep.drainMax = ev.arg
			}
		case "softirq":
			rep.softirqs++
		}
	}
	return rep
}

func writeReport(w io.Writer, events []event) error {
	rep := aggregate(events)

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"task", "switches", "preempts", "blocks", "unblocks"}); err != nil {
		return err
	}
	for _, task := range rep.taskOrder {
		agg := rep.perTask[task]
		rec := []string{
			strconv.FormatUint(uint64(task), 10),
			strconv.FormatUint(agg.switches, 10),
			strconv.FormatUint(agg.preempts, 10),
			strconv.FormatUint(agg.blocks, 10),
			strconv.FormatUint(agg.unblocks, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "# events=%d drain_passes=%d drain_cycles=%d drain_max=%d softirqs=%d\n",
		len(events), rep.drainPasses, rep.drainCycles, rep.drainMax, rep.softirqs)
	return err
}
