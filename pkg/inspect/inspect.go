// Package inspect lists the events and subscribers of a bus and renders
// them for humans or machines.
package inspect

import (
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strconv"

	"github.com/spf13/cast"

	"github.com/vulntor/eventstack/pkg/event"
)

// Source is the read side shared by event.Publisher and event.Stack.
type Source interface {
	GetRegisteredEvents() iter.Seq[string]
	Subscribers() []event.Subscription
}

// Snapshot is a point-in-time listing of a bus.
type Snapshot struct {
	Events      []string             `json:"events"`
	Subscribers []event.Subscription `json:"subscribers"`
}

// Take captures the registered events and subscriptions of src.
func Take(src Source) Snapshot {
	events := slices.Collect(src.GetRegisteredEvents())
	if events == nil {
		events = []string{}
	}
	subs := src.Subscribers()
	if subs == nil {
		subs = []event.Subscription{}
	}
	return Snapshot{Events: events, Subscribers: subs}
}

// SubscriberHeaders are the columns produced by SubscriberRows.
var SubscriberHeaders = []string{"Scope", "Event", "Handler", "ID"}

// SubscriberRows flattens subscriptions into table rows. Wildcard
// subscriptions show "*" as their event.
func SubscriberRows(subs []event.Subscription) [][]string {
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		name := s.Event
		if s.Wildcard {
			name = "*"
		}
		rows = append(rows, []string{strconv.Itoa(s.Scope), name, s.Handler, s.HandlerID})
	}
	return rows
}

// Print renders snap with f. JSON mode emits the snapshot as one document;
// table mode prints the event list followed by the subscriber table.
func Print(f Formatter, snap Snapshot) error {
	if f.Mode() == ModeJSON {
		return f.PrintJSON(snap)
	}

	rows := make([][]string, 0, len(snap.Events))
	for i, name := range snap.Events {
		rows = append(rows, []string{strconv.Itoa(i + 1), name})
	}
	if err := f.PrintTable([]string{"#", "Event"}, rows); err != nil {
		return err
	}
	if err := f.PrintSummary(fmt.Sprintf("%d registered events", len(snap.Events))); err != nil {
		return err
	}

	if err := f.PrintTable(SubscriberHeaders, SubscriberRows(snap.Subscribers)); err != nil {
		return err
	}
	return f.PrintSummary(fmt.Sprintf("%d subscriptions", len(snap.Subscribers)))
}

// Value renders an opaque sender or payload for logs and listings.
// Scalars and Stringers use their natural text; everything else falls back
// to JSON and finally to fmt's %v.
func Value(v any) string {
	if v == nil {
		return ""
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
