// Command inspect examines emplace layouts and construction behavior.
//
// It ships a small catalog of demonstration types. For each, it can print
// the compiled field table (offsets, sizes, pin annotations, zero-valid
// status) and trace a construction, including the rollback order when a
// field step is made to fail.
package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/emplace"
	"github.com/wippyai/emplace/layout"
)

func main() {
	var (
		typeName    = flag.String("type", "", "Catalog type to inspect")
		list        = flag.Bool("list", false, "List catalog types and exit")
		trace       = flag.Bool("trace", false, "Trace a construction of the type")
		failAt      = flag.Int("fail-at", -1, "Make the step at this index fail during -trace")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *interactive {
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *list {
		for _, e := range catalog {
			fmt.Printf("%-12s %s\n", e.name, e.describe)
		}
		return
	}

	if *typeName == "" {
		fmt.Fprintln(os.Stderr, "Usage: inspect -type <name> [-trace [-fail-at n]]")
		fmt.Fprintln(os.Stderr, "       inspect -list")
		fmt.Fprintln(os.Stderr, "       inspect -i  (interactive mode)")
		os.Exit(1)
	}

	entry, ok := lookup(*typeName)
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no catalog type %q (try -list)\n", *typeName)
		os.Exit(1)
	}

	if err := show(entry, *trace, *failAt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func show(e catalogEntry, trace bool, failAt int) error {
	desc, err := layout.Compile(e.typ)
	if err != nil {
		return err
	}

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}

	fmt.Println(renderLayout(desc, width))

	if trace {
		events, err := e.runTrace(failAt)
		fmt.Println(renderTrace(events, err, width))
	}
	return nil
}

func renderLayout(desc *layout.Struct, width int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  size=%d align=%d zero-valid=%v\n",
		desc.Type, desc.Size, desc.Align, emplace.CanZero(desc.Type))
	fmt.Fprintf(&b, "%-4s %-16s %-8s %-8s %s\n", "#", "field", "offset", "size", "type")

	for _, f := range desc.Fields {
		name := f.Name
		if f.Pin {
			name += " (pin)"
		}
		line := fmt.Sprintf("%-4d %-16s %-8d %-8d %s", f.Index, name, f.Offset, f.Type.Size(), f.Type)
		if len(line) > width {
			line = line[:width]
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func renderTrace(events []string, err error, width int) string {
	var b strings.Builder
	b.WriteString("construction trace:\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "  %s\n", ev)
	}
	if err != nil {
		fmt.Fprintf(&b, "  result: %v\n", err)
	} else {
		b.WriteString("  result: ok\n")
	}
	return b.String()
}

func lookup(name string) (catalogEntry, bool) {
	for _, e := range catalog {
		if e.name == name {
			return e, true
		}
	}
	return catalogEntry{}, false
}

// catalogEntry is one demonstration type with a traceable construction.
type catalogEntry struct {
	typ      reflect.Type
	runTrace func(failAt int) ([]string, error)
	name     string
	describe string
}
