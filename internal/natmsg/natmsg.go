// Package natmsg implements the Firefox native-messaging framing layer:
// a 4-byte little-endian length prefix followed by that many bytes of
// UTF-8 JSON, on both stdin and stdout.
package natmsg

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// ReadMessage reads one length-prefixed JSON frame from r and unmarshals
// it into v. Returns io.EOF when the stream ends cleanly between frames.
func ReadMessage(r io.Reader, v interface{}) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return err
	}
	msgLen := binary.LittleEndian.Uint32(lenBuf[:])

	msgBuf := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msgBuf); err != nil {
		return fmt.Errorf("natmsg: read message body: %w", err)
	}
	if err := json.Unmarshal(msgBuf, v); err != nil {
		return fmt.Errorf("natmsg: decode message: %w", err)
	}
	return nil
}

// WriteMessage marshals v to JSON and writes it to w as one
// length-prefixed frame.
func WriteMessage(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("natmsg: encode message: %w", err)
	}

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("natmsg: write length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("natmsg: write message body: %w", err)
	}
	return nil
}

// InboundMessage is a message from the browser extension.
type InboundMessage struct {
	EventType   string `json:"event_type"`
	TabID       any    `json:"tab_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Ack is sent immediately after every inbound message.
type Ack struct {
	Type string `json:"type"`
}

// NewAck returns the canonical acknowledgement frame.
func NewAck() Ack {
	return Ack{Type: "ACK"}
}

// Close is written when the daemon requests a tab be closed.
type Close struct {
	Type  string `json:"type"`
	TabID string `json:"tab_id"`
}

// NewClose returns a Close frame for tabID.
func NewClose(tabID string) Close {
	return Close{Type: "Close", TabID: tabID}
}
