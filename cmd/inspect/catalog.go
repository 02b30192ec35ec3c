package main

import (
	"fmt"
	"reflect"

	"github.com/wippyai/emplace"
)

// The demonstration types below cover the construction shapes the library
// supports: plain field lists, zero-fill with overrides, pin-tagged
// self-referential layouts, and nested delegated initializers.

// Conn has a pin-tagged, self-referential layout: Cursor points into Buf.
type Conn struct {
	ID     uint64
	Buf    [64]byte `emplace:"pin"`
	Cursor *byte
}

// Stats is zero-valid: counters start meaningful at zero.
type Stats struct {
	Hits   uint64
	Misses uint64
	Label  string
}

func (Stats) ZeroValid() {}

// Session nests a delegated construction.
type Session struct {
	Token string
	Stats Stats
}

// probe is a field type whose construction and destruction are observable.
type probe struct {
	events *[]string
	id     string
}

func (p *probe) Destroy() {
	if p.events != nil {
		*p.events = append(*p.events, "destroy "+p.id)
	}
}

// Pipeline is a chain of probes for rollback demonstrations.
type Pipeline struct {
	Source probe
	Filter probe
	Sink   probe
}

var catalog = []catalogEntry{
	{
		name:     "conn",
		describe: "pin-tagged self-referential layout (Cursor points into Buf)",
		typ:      reflect.TypeOf(Conn{}),
		runTrace: traceConn,
	},
	{
		name:     "stats",
		describe: "zero-valid counters built via the zero-fill fast path",
		typ:      reflect.TypeOf(Stats{}),
		runTrace: traceStats,
	},
	{
		name:     "session",
		describe: "nested delegated construction",
		typ:      reflect.TypeOf(Session{}),
		runTrace: traceSession,
	},
	{
		name:     "pipeline",
		describe: "three-stage construction showing ordered rollback",
		typ:      reflect.TypeOf(Pipeline{}),
		runTrace: tracePipeline,
	},
}

func traceConn(failAt int) ([]string, error) {
	var events []string

	init, err := emplace.Struct[Conn]().
		Put("ID", emplace.SetWith(func(emplace.Self) (uint64, error) {
			if failAt == 0 {
				events = append(events, "fail ID")
				return 0, fmt.Errorf("step 0 rejected")
			}
			events = append(events, "init ID")
			return 42, nil
		})).
		Put("Buf", emplace.SetWith(func(emplace.Self) ([64]byte, error) {
			if failAt == 1 {
				events = append(events, "fail Buf")
				return [64]byte{}, fmt.Errorf("step 1 rejected")
			}
			events = append(events, "init Buf")
			return [64]byte{}, nil
		})).
		Put("Cursor", emplace.SetWith(func(self emplace.Self) (*byte, error) {
			if failAt == 2 {
				events = append(events, "fail Cursor")
				return nil, fmt.Errorf("step 2 rejected")
			}
			events = append(events, "init Cursor -> &Buf[0]")
			buf := emplace.FieldOf[[64]byte](self, "Buf")
			return &buf[0], nil
		})).
		BuildPin()
	if err != nil {
		return events, err
	}

	var c Conn
	return events, emplace.PinTo(&c, init)
}

func traceStats(failAt int) ([]string, error) {
	events := []string{"zero-fill"}

	init, err := emplace.Struct[Stats]().
		Zeroed().
		Put("Label", emplace.SetWith(func(emplace.Self) (string, error) {
			if failAt == 0 {
				events = append(events, "fail Label")
				return "", fmt.Errorf("step 0 rejected")
			}
			events = append(events, "init Label")
			return "requests", nil
		})).
		Build()
	if err != nil {
		return events, err
	}

	var s Stats
	if err := emplace.To(&s, init); err != nil {
		return events, err
	}
	events = append(events, fmt.Sprintf("value %+v", s))
	return events, nil
}

func traceSession(failAt int) ([]string, error) {
	var events []string

	inner := emplace.Struct[Stats]().
		Zeroed().
		Put("Label", emplace.SetWith(func(emplace.Self) (string, error) {
			if failAt == 1 {
				events = append(events, "fail Stats.Label")
				return "", fmt.Errorf("nested step rejected")
			}
			events = append(events, "init Stats.Label")
			return "session", nil
		})).
		MustBuild()

	init, err := emplace.Struct[Session]().
		Put("Token", emplace.SetWith(func(emplace.Self) (string, error) {
			if failAt == 0 {
				events = append(events, "fail Token")
				return "", fmt.Errorf("step 0 rejected")
			}
			events = append(events, "init Token")
			return "tok-1", nil
		})).
		Put("Stats", emplace.Via(inner)).
		Build()
	if err != nil {
		return events, err
	}

	var s Session
	return events, emplace.To(&s, init)
}

func tracePipeline(failAt int) ([]string, error) {
	var events []string
	stage := func(i int, name string) emplace.Step {
		return emplace.SetWith(func(emplace.Self) (probe, error) {
			if i == failAt {
				events = append(events, "fail "+name)
				return probe{}, fmt.Errorf("stage %q rejected", name)
			}
			events = append(events, "init "+name)
			return probe{events: &events, id: name}, nil
		})
	}

	init, err := emplace.Struct[Pipeline]().
		Put("Source", stage(0, "Source")).
		Put("Filter", stage(1, "Filter")).
		Put("Sink", stage(2, "Sink")).
		Build()
	if err != nil {
		return events, err
	}

	var p Pipeline
	return events, emplace.To(&p, init)
}
