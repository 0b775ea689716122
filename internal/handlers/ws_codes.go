// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the match handler.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected without the linot subprotocol.
	MatchClosedError    websocket.StatusCode = 3004 // The session was unloaded while the client was attached.
)
