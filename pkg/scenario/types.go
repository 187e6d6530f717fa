// Package scenario loads YAML scripts that drive an event stack and records
// the resulting dispatch trace.
//
// A scenario declares named handlers (which may publish further events,
// fail or panic when invoked) and an ordered list of steps operating on the
// stack: push, pop, register, subscribe, publish, clear and so on.
package scenario

// Op names a scenario step.
type Op string

const (
	OpSubscribe      Op = "subscribe"
	OpUnsubscribe    Op = "unsubscribe"
	OpSubscribeAll   Op = "subscribe_all"
	OpUnsubscribeAll Op = "unsubscribe_all"
	OpRegister       Op = "register"
	OpPublish        Op = "publish"
	OpPush           Op = "push"
	OpPop            Op = "pop"
	OpClear          Op = "clear"
	OpLogEvents      Op = "log_events"
)

// Scenario is the root of a scenario file.
type Scenario struct {
	// Version is an optional semver constraint on the running tool version.
	Version  string        `yaml:"version"`
	Name     string        `yaml:"name" validate:"required"`
	Group    string        `yaml:"group"`
	Typed    []string      `yaml:"typed" validate:"dive,required"`
	Handlers []HandlerSpec `yaml:"handlers" validate:"dive"`
	Steps    []Step        `yaml:"steps" validate:"required,min=1,dive"`
}

// HandlerSpec declares a handler available to steps by name.
type HandlerSpec struct {
	Name  string `yaml:"name" validate:"required"`
	Emits []Emit `yaml:"emits" validate:"dive"`
	Fail  bool   `yaml:"fail"`
	Panic bool   `yaml:"panic"`
}

// Emit is an event a handler publishes when invoked. Exactly one of Event
// and Typed is set.
type Emit struct {
	Event  string `yaml:"event"`
	Typed  string `yaml:"typed"`
	Sender string `yaml:"sender"`
	Data   any    `yaml:"data"`
}

// Step is one operation on the stack. Event and Typed are mutually exclusive;
// Typed names one of the scenario's typed identifiers.
type Step struct {
	Op      Op     `yaml:"op" validate:"required,oneof=subscribe unsubscribe subscribe_all unsubscribe_all register publish push pop clear log_events"`
	Event   string `yaml:"event"`
	Typed   string `yaml:"typed"`
	Handler string `yaml:"handler"`
	Sender  string `yaml:"sender"`
	Data    any    `yaml:"data"`
	Enabled *bool  `yaml:"enabled"`
}

// Outcome is the result of one handler invocation.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
	OutcomePanic Outcome = "panic"
)

// Entry records one handler invocation.
type Entry struct {
	Seq     int     `json:"seq"`
	Step    int     `json:"step"`
	Event   string  `json:"event"`
	Handler string  `json:"handler"`
	Sender  string  `json:"sender"`
	Data    string  `json:"data,omitempty"`
	Outcome Outcome `json:"outcome"`
}

// Result is the outcome of a run.
type Result struct {
	Name  string  `json:"name"`
	Trace []Entry `json:"trace"`
	// Depth is the stack depth after the last executed step.
	Depth int `json:"depth"`
	// Steps counts the steps that completed.
	Steps int `json:"steps"`
}
