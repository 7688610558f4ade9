package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | move | leave | chat | ping
type ClientMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Seq       int64  `json:"seq,omitempty"`
	Action    string `json:"action,omitempty"`
	Selection string `json:"selection,omitempty"`
	Text      string `json:"text,omitempty"`
}

// ServerMsg é a resposta direta a uma mensagem do cliente
type ServerMsg struct {
	Type      string `json:"type"` // pong | move_result | left | error
	SessionID string `json:"sessionId,omitempty"`
	Payload   any    `json:"payload,omitempty"`
	Error     string `json:"error,omitempty"`
}
