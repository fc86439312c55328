package wsproto

import "encoding/base64"

// Error codes carried in Error.Code. These are strings, not an enum, because
// they cross the wire verbatim and new ones may be added without breaking
// older clients that only recognize a subset.
const (
	CodeBadJSON              = "BadJson"
	CodeUnknownRequest       = "UnknownRequest"
	CodePortNotFound         = "PortNotFound"
	CodeNotOpen              = "NotOpen"
	CodeNotSubscribed        = "NotSubscribed"
	CodeAlreadyLockedByOther = "AlreadyLockedByOther"
	CodeNotLocked            = "NotLocked"
	CodeLockedByOther        = "LockedByOther"
	CodeWriteLockNotHeld     = "WriteLockNotHeld"
	CodePortClosed           = "PortClosed"
	CodeOpenFailed           = "OpenFailed"
	CodeEnumerationFailed    = "EnumerationFailed"
	CodeWriteTimeout         = "WriteTimeout"
	CodeInternal             = "Internal"
)

type readBody struct {
	Port string `json:"port"`
	Data string `json:"data"`
}

type listBody struct {
	Ports []string `json:"ports"`
}

type openedBody struct {
	Port string `json:"port"`
}

type closedBody struct {
	Port   string `json:"port"`
	Reason string `json:"reason,omitempty"`
}

type wroteBody struct {
	Port string `json:"port"`
	Size int    `json:"size"`
}

type lockedBody struct {
	Port string `json:"port"`
}

type unlockedBody struct {
	Port string `json:"port"`
}

type errorBody struct {
	Request string `json:"request,omitempty"`
	Code    string `json:"code"`
	Detail  string `json:"detail,omitempty"`
}

// Event is an outbound frame: exactly one field is populated, matching the
// tag it was constructed for. json.Marshal on an Event omits the rest via
// omitempty, producing the single-tag object shape the wire protocol
// requires.
type Event struct {
	Read     *readBody     `json:"Read,omitempty"`
	List     *listBody     `json:"List,omitempty"`
	Opened   *openedBody   `json:"Opened,omitempty"`
	Closed   *closedBody   `json:"Closed,omitempty"`
	Wrote    *wroteBody    `json:"Wrote,omitempty"`
	Locked   *lockedBody   `json:"Locked,omitempty"`
	Unlocked *unlockedBody `json:"Unlocked,omitempty"`
	Error    *errorBody    `json:"Error,omitempty"`
}

// NewRead builds a Read event. data is always base64-encoded on the wire, a
// single unambiguous outbound encoding regardless of whether the bytes are
// text or binary.
func NewRead(port string, data []byte) Event {
	return Event{Read: &readBody{Port: port, Data: base64.StdEncoding.EncodeToString(data)}}
}

// NewList builds a List event from an enumeration result.
func NewList(ports []string) Event {
	if ports == nil {
		ports = []string{}
	}
	return Event{List: &listBody{Ports: ports}}
}

// NewOpened builds an Opened event.
func NewOpened(port string) Event {
	return Event{Opened: &openedBody{Port: port}}
}

// NewClosed builds a Closed event. reason is empty for a normal close.
func NewClosed(port, reason string) Event {
	return Event{Closed: &closedBody{Port: port, Reason: reason}}
}

// NewWrote builds a Wrote event.
func NewWrote(port string, size int) Event {
	return Event{Wrote: &wroteBody{Port: port, Size: size}}
}

// NewLocked builds a Locked event.
func NewLocked(port string) Event {
	return Event{Locked: &lockedBody{Port: port}}
}

// NewUnlocked builds an Unlocked event.
func NewUnlocked(port string) Event {
	return Event{Unlocked: &unlockedBody{Port: port}}
}

// NewError builds an Error event. request names the tag that triggered it,
// if any frame was successfully identified before the error occurred.
func NewError(request, code, detail string) Event {
	return Event{Error: &errorBody{Request: request, Code: code, Detail: detail}}
}
