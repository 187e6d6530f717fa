package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vulntor/eventstack/pkg/version"
)

// ErrInvalid wraps every semantic validation failure.
var ErrInvalid = errors.New("scenario: invalid")

var validate = validator.New()

// Load reads and validates the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario document. Unknown keys are errors.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalid)
		}
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := Validate(&sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks field constraints, cross references between steps and
// handlers, the version constraint against the running build, and that no
// handler can trigger itself through its emits.
func Validate(sc *Scenario) error {
	if err := validate.Struct(sc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := version.CheckCurrent(sc.Version); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	handlers := make(map[string]bool, len(sc.Handlers))
	for _, h := range sc.Handlers {
		if handlers[h.Name] {
			return fmt.Errorf("%w: duplicate handler %q", ErrInvalid, h.Name)
		}
		handlers[h.Name] = true
		for i, e := range h.Emits {
			if err := checkTarget(sc, e.Event, e.Typed); err != nil {
				return fmt.Errorf("%w: handler %q emit %d: %w", ErrInvalid, h.Name, i, err)
			}
		}
	}

	for i, st := range sc.Steps {
		if err := checkStep(sc, handlers, st); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrInvalid, i, st.Op, err)
		}
	}

	if err := checkEmitCycles(sc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func checkStep(sc *Scenario, handlers map[string]bool, st Step) error {
	switch st.Op {
	case OpSubscribe, OpUnsubscribe, OpRegister, OpPublish:
		if err := checkTarget(sc, st.Event, st.Typed); err != nil {
			return err
		}
	}

	switch st.Op {
	case OpSubscribe, OpUnsubscribe, OpSubscribeAll, OpUnsubscribeAll:
		if st.Handler == "" {
			return errors.New("handler is required")
		}
		if !handlers[st.Handler] {
			return fmt.Errorf("unknown handler %q", st.Handler)
		}
	case OpLogEvents:
		if st.Enabled == nil {
			return errors.New("enabled is required")
		}
	}
	return nil
}

func checkTarget(sc *Scenario, event, typed string) error {
	switch {
	case event == "" && typed == "":
		return errors.New("event or typed is required")
	case event != "" && typed != "":
		return errors.New("event and typed are mutually exclusive")
	case typed != "" && !slices.Contains(sc.Typed, typed):
		return fmt.Errorf("typed event %q is not declared", typed)
	}
	return nil
}
