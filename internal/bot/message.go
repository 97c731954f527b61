package bot

import "context"

// Media is a binary attachment carried by an inbound message. Transports
// leave Data nil and set Fetch so nothing is downloaded until a pending
// vault upload claims the file. Size is the size the transport announced,
// 0 when unknown.
type Media struct {
	Data     []byte
	FileName string
	MIMEType string
	Size     int64
	Fetch    func(ctx context.Context, limit int64) ([]byte, error)
}

// Message is one inbound chat event. Text holds the caption for media.
type Message struct {
	SenderID string
	Text     string
	Media    *Media
}

// Sender is the outbound half of the chat transport.
type Sender interface {
	SendText(ctx context.Context, to string, text string) error
	SendDocument(ctx context.Context, to string, name string, data []byte, caption string) error
	SendImage(ctx context.Context, to string, data []byte, caption string) error
}
