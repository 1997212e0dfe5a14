package server

// Note: Game events (round_start, player_turn, payouts, etc.) are defined
// in internal/game/events.go and are also sent as WebSocket messages under
// their event type.

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeJoinTable    MessageType = "join_table"
	MessageTypePlaceBet     MessageType = "place_bet"
	MessageTypePlayerAction MessageType = "player_action"

	// Server to client messages
	MessageTypeError       MessageType = "error"
	MessageTypeTableJoined MessageType = "table_joined"
	MessageTypeBettingOpen MessageType = "betting_open"
	MessageTypeBetAccepted MessageType = "bet_accepted"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
