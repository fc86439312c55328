// Package wsproto implements the JSON wire protocol carried over the
// "websocket-serial-json" WebSocket subprotocol: one object per frame, each
// with exactly one recognized top-level tag.
package wsproto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Subprotocol is the WebSocket subprotocol name negotiated at handshake.
const Subprotocol = "websocket-serial-json"

// Sentinel errors returned by ParseRequest.
var (
	// ErrBadJSON is returned when a frame cannot be unmarshaled as JSON at all.
	ErrBadJSON = errors.New("malformed json frame")

	// ErrUnknownRequest is returned when a frame parses as JSON but carries
	// none of the recognized top-level tags, or more than one.
	ErrUnknownRequest = errors.New("unrecognized request tag")
)

// Kind identifies which inbound request tag a Request carries.
type Kind int

const (
	KindOpen Kind = iota
	KindClose
	KindList
	KindWriteLock
	KindReleaseWriteLock
	KindWrite
)

func (k Kind) String() string {
	switch k {
	case KindOpen:
		return "Open"
	case KindClose:
		return "Close"
	case KindList:
		return "List"
	case KindWriteLock:
		return "WriteLock"
	case KindReleaseWriteLock:
		return "ReleaseWriteLock"
	case KindWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// Request is a parsed inbound frame. Port is empty for List, and for Close
// when the client means "close every port I hold". Data holds the decoded
// write payload, already run through the base64-or-raw-text resolution
// described in ParseRequest's doc comment.
type Request struct {
	Kind Kind
	Port string
	Data []byte
}

type portPayload struct {
	Port string `json:"port"`
}

type writePayload struct {
	Port string `json:"port"`
	Data string `json:"data"`
}

// envelope mirrors the one-object-one-tag shape of every inbound frame.
// Exactly one field should be non-nil; ParseRequest rejects zero or more
// than one.
type envelope struct {
	Open             *portPayload  `json:"Open"`
	Close            *portPayload  `json:"Close"`
	List             *struct{}     `json:"List"`
	WriteLock        *portPayload  `json:"WriteLock"`
	ReleaseWriteLock *portPayload  `json:"ReleaseWriteLock"`
	Write            *writePayload `json:"Write"`
}

// ParseRequest decodes one inbound frame. A Write's data field is tried as
// base64 first (the form the bundled HTML test page and any binary-aware
// client would send); if it does not decode cleanly, the raw bytes of the
// string are used verbatim, covering plain-text clients that never
// base64-encode at all.
func ParseRequest(raw []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}

	set := 0
	var req Request

	if env.Open != nil {
		set++
		req = Request{Kind: KindOpen, Port: env.Open.Port}
	}
	if env.Close != nil {
		set++
		req = Request{Kind: KindClose, Port: env.Close.Port}
	}
	if env.List != nil {
		set++
		req = Request{Kind: KindList}
	}
	if env.WriteLock != nil {
		set++
		req = Request{Kind: KindWriteLock, Port: env.WriteLock.Port}
	}
	if env.ReleaseWriteLock != nil {
		set++
		req = Request{Kind: KindReleaseWriteLock, Port: env.ReleaseWriteLock.Port}
	}
	if env.Write != nil {
		set++
		req = Request{Kind: KindWrite, Port: env.Write.Port, Data: decodeWriteData(env.Write.Data)}
	}

	if set != 1 {
		return Request{}, ErrUnknownRequest
	}
	return req, nil
}

func decodeWriteData(s string) []byte {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b
	}
	return []byte(s)
}
