package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// WriteResult sends a success envelope with server-side timing attached.
// started is the moment the inbound action began processing.
func WriteResult(conn *websocket.Conn, data interface{}, started time.Time) error {
	return writeTyped(conn, Envelope{
		Success: true,
		Data:    data,
		Timing:  buildTiming(started),
	})
}

// WriteFailure sends a failure envelope. details may be nil.
func WriteFailure(conn *websocket.Conn, code, message string, details interface{}, started time.Time) error {
	return writeTyped(conn, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message, Details: details},
		Timing:  buildTiming(started),
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	return conn.ReadJSON(v)
}

func writeTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

func buildTiming(started time.Time) *Timing {
	now := time.Now().UTC()
	return &Timing{
		ServerTimestamp:  now.Format(time.RFC3339Nano),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
	}
}
