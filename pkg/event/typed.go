package event

import (
	"context"
	"fmt"
)

// Identifier is a closed set of event identifiers, typically a string or
// integer enum with a String method.
type Identifier interface {
	comparable
	fmt.Stringer
}

// Typed publishes and subscribes through structured identifiers instead of
// raw names. The identifier table is fixed at construction; every canonical
// name is registered on the underlying bus right away.
type Typed[K Identifier, S, D any] struct {
	bus   Bus[S, D]
	group string
	ids   []K
	names map[K]string
}

// NewTyped builds the identifier table for ids and registers every canonical
// name on bus. Canonical names are "<group>/<id>", or just "<id>" when group
// is empty.
func NewTyped[K Identifier, S, D any](bus Bus[S, D], group string, ids ...K) *Typed[K, S, D] {
	t := &Typed[K, S, D]{
		bus:   bus,
		group: group,
		names: make(map[K]string, len(ids)),
	}
	for _, id := range ids {
		if _, dup := t.names[id]; dup {
			continue
		}
		t.ids = append(t.ids, id)
		t.names[id] = CanonicalName(group, id.String())
	}
	t.Register()
	return t
}

// CanonicalName joins a group prefix and an identifier name.
func CanonicalName(group, name string) string {
	if group == "" {
		return name
	}
	return group + "/" + name
}

// Register registers every canonical name on the bus again, for instance
// after the bus was cleared or a new scope was pushed.
func (t *Typed[K, S, D]) Register() {
	for _, id := range t.ids {
		t.bus.RegisterEvent(t.names[id])
	}
}

// Name returns the canonical event name of id.
func (t *Typed[K, S, D]) Name(id K) (string, error) {
	name, ok := t.names[id]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnknownEvent, id)
	}
	return name, nil
}

// Names returns the canonical names in table order.
func (t *Typed[K, S, D]) Names() []string {
	names := make([]string, 0, len(t.ids))
	for _, id := range t.ids {
		names = append(names, t.names[id])
	}
	return names
}

func (t *Typed[K, S, D]) PublishEvent(ctx context.Context, id K, sender S, data D) error {
	name, err := t.Name(id)
	if err != nil {
		return err
	}
	t.bus.PublishEvent(ctx, name, sender, data)
	return nil
}

func (t *Typed[K, S, D]) SubscribeToEvent(id K, h *Handler[S, D]) error {
	name, err := t.Name(id)
	if err != nil {
		return err
	}
	t.bus.SubscribeToEvent(name, h)
	return nil
}

func (t *Typed[K, S, D]) UnsubscribeToEvent(id K, h *Handler[S, D]) error {
	name, err := t.Name(id)
	if err != nil {
		return err
	}
	t.bus.UnsubscribeToEvent(name, h)
	return nil
}
