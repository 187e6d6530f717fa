package scenario

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vulntor/eventstack/pkg/event"
)

// emitGraph links each handler to the handlers that receive what it emits.
// It is built from every subscribe step regardless of later unsubscribes or
// pops, so it over-approximates the subscriptions live at any moment.
type emitGraph struct {
	emits       map[string][]string // handler -> emitted event names
	subscribers map[string][]string // event name -> handlers
	wildcard    []string
}

func newEmitGraph(sc *Scenario) *emitGraph {
	g := &emitGraph{
		emits:       make(map[string][]string, len(sc.Handlers)),
		subscribers: make(map[string][]string),
	}
	for _, h := range sc.Handlers {
		for _, e := range h.Emits {
			g.emits[h.Name] = append(g.emits[h.Name], eventName(sc, e.Event, e.Typed))
		}
	}
	for _, st := range sc.Steps {
		switch st.Op {
		case OpSubscribe:
			name := eventName(sc, st.Event, st.Typed)
			if !slices.Contains(g.subscribers[name], st.Handler) {
				g.subscribers[name] = append(g.subscribers[name], st.Handler)
			}
		case OpSubscribeAll:
			if !slices.Contains(g.wildcard, st.Handler) {
				g.wildcard = append(g.wildcard, st.Handler)
			}
		}
	}
	return g
}

func (g *emitGraph) next(handler string, visit func(string) error) error {
	for _, name := range g.emits[handler] {
		for _, h := range g.subscribers[name] {
			if err := visit(h); err != nil {
				return err
			}
		}
		for _, h := range g.wildcard {
			if err := visit(h); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkEmitCycles rejects scenarios in which a handler can be invoked again,
// directly or through other handlers, by an event it emits. Such a scenario
// never finishes publishing.
func checkEmitCycles(sc *Scenario) error {
	g := newEmitGraph(sc)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(sc.Handlers))
	var path []string

	var visit func(h string) error
	visit = func(h string) error {
		switch state[h] {
		case done:
			return nil
		case visiting:
			start := slices.Index(path, h)
			cycle := append(slices.Clone(path[start:]), h)
			return fmt.Errorf("emit cycle %s", strings.Join(cycle, " -> "))
		}

		state[h] = visiting
		path = append(path, h)
		if err := g.next(h, visit); err != nil {
			return err
		}
		path = path[:len(path)-1]
		state[h] = done
		return nil
	}

	for _, h := range sc.Handlers {
		if state[h.Name] == unvisited {
			if err := visit(h.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func eventName(sc *Scenario, name, typed string) string {
	if typed != "" {
		return event.CanonicalName(sc.Group, typed)
	}
	return name
}
