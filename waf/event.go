package waf

// EventType classifies a security event.
type EventType int

// Event types.
const (
	EventTypeUnknown EventType = iota
	EventTypeObservation
	EventTypeAlert
)

var eventTypeNames = []string{"Unknown", "Observation", "Alert"}

func (t EventType) String() string {
	if t < 0 || int(t) >= len(eventTypeNames) {
		return eventTypeNames[0]
	}
	return eventTypeNames[t]
}

// EventAction is an action taken or recommended for an event.
type EventAction int

// Event actions.
const (
	EventActionUnknown EventAction = iota
	EventActionLog
	EventActionBlock
	EventActionIgnore
	EventActionAllow
)

var eventActionNames = []string{"Unknown", "Log", "Block", "Ignore", "Allow"}

func (a EventAction) String() string {
	if a < 0 || int(a) >= len(eventActionNames) {
		return eventActionNames[0]
	}
	return eventActionNames[a]
}

// EventSuppress records why an event was suppressed, if it was.
type EventSuppress int

// Event suppression states.
const (
	EventSuppressNone EventSuppress = iota
	EventSuppressFalsePositive
	EventSuppressReplaced
	EventSuppressIncomplete
	EventSuppressOther
)

var eventSuppressNames = []string{"None", "FalsePositive", "Replaced", "Incomplete", "Other"}

func (s EventSuppress) String() string {
	if s < 0 || int(s) >= len(eventSuppressNames) {
		return eventSuppressNames[0]
	}
	return eventSuppressNames[s]
}

// LogEvent is one security event triggered while processing a transaction.
// The rule engine produces these; the audit log subsystem only serializes
// them.
type LogEvent struct {
	ID         uint32
	RuleID     string
	Type       EventType
	RecAction  EventAction
	Action     EventAction
	Suppress   EventSuppress
	Confidence uint8
	Severity   uint8
	Tags       []string
	FieldNames []string
	Msg        string
	Data       []byte
}
