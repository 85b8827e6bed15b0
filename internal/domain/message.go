package domain

// TextMessage is the only message object the dispatcher sends.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextMessage builds a "text" message object.
func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

// SendMode selects how a dispatch reaches its audience.
type SendMode string

const (
	ModeBroadcast SendMode = "broadcast"
	ModeMulticast SendMode = "multicast"
	// ModePush is accepted as a synonym of ModeMulticast.
	ModePush SendMode = "push"
)
