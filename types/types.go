// types.go
package types

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

// EventType is the closed set of logical event kinds that flow through the
// main event queue. The wire spelling matches the persisted/HTTP format.
type EventType string

const (
	EventButtonPressed  EventType = "BUTTON_PRESSED"
	EventButtonReleased EventType = "BUTTON_RELEASED"
	EventPickup         EventType = "PICKUP"
	EventEmergency      EventType = "EMERGENCY"
	EventParking        EventType = "PARKING"
)

// ButtonLabel is the semantic meaning of a physical button.
type ButtonLabel string

const (
	ButtonAccept  ButtonLabel = "ACCEPT"
	ButtonReject  ButtonLabel = "REJECT"
	ButtonUnknown ButtonLabel = "UNKNOWN"
)

// Event is one item on the main event queue.
// Value carries the button label for button events and the free-text payload
// for pickup/parking events; it is empty for emergencies.
type Event struct {
	Type  EventType
	Value string
}

// -----------------------------------------------------------------------------
// Display and LED commands
// -----------------------------------------------------------------------------

type DisplayCmdType string

const (
	DisplayNewText    DisplayCmdType = "NEWTEXT"
	DisplayDeleteText DisplayCmdType = "DELETETEXT"
)

// DisplayCommand is one item on the display queue.
type DisplayCommand struct {
	Type  DisplayCmdType
	Value string
}

type LedState string

const (
	LedOn  LedState = "ON"
	LedOff LedState = "OFF"
)

// LedCommand is one item on the LED queue.
type LedCommand struct {
	State LedState
}

// -----------------------------------------------------------------------------
// Message ledger
// -----------------------------------------------------------------------------

// MessageKind mirrors the event that created the message.
type MessageKind string

const (
	KindPickup    MessageKind = "PICKUP"
	KindEmergency MessageKind = "EMERGENCY"
	KindParking   MessageKind = "PARKING"
)

// MessageState is the per-message lifecycle state.
//
//	wait -> accepted -> show
//	wait -> rejected (terminal)
//
// "show" means the message stays in history but is no longer actively
// mirrored on the remote display.
type MessageState string

const (
	StateWait     MessageState = "wait"
	StateAccepted MessageState = "accepted"
	StateRejected MessageState = "rejected"
	StateShow     MessageState = "show"
)

// Message is one ledger entry. The JSON tags define the persisted file format
// and the /messages API shape; do not rename them.
type Message struct {
	Kind      MessageKind  `json:"type"`
	Value     string       `json:"value"`
	State     MessageState `json:"state"`
	Timestamp string       `json:"timestamp"`
}

// MaxMessages is the ledger capacity. Oldest entries are evicted beyond it.
const MaxMessages = 5

// TimestampLayout is the human-facing layout used in ledger entries.
const TimestampLayout = "02.01.2006 15:04"
