package relay

// Meta carries the delivery details shared by every event.
type Meta struct {
	// EventID is the platform's webhook event ID, used to detect redelivery.
	EventID    string
	ReplyToken string
	// SourceType is "user", "group" or "room".
	SourceType string
	SourceID   string
	Redelivery bool
}

// Event is one classified webhook event.
type Event interface {
	EventMeta() Meta
	Kind() string
}

// TextEvent is a text message.
type TextEvent struct {
	Meta
	Text string
}

// StickerEvent is a sticker message.
type StickerEvent struct {
	Meta
	PackageID string
	StickerID string
}

// ImageEvent is an image message. ContentID references the platform's content store.
type ImageEvent struct {
	Meta
	ContentID string
}

// UnsupportedEvent is any event the relay does not handle.
type UnsupportedEvent struct {
	Meta
	// Type is the platform's event or message type, for logging.
	Type string
}

func (e TextEvent) EventMeta() Meta        { return e.Meta }
func (e StickerEvent) EventMeta() Meta     { return e.Meta }
func (e ImageEvent) EventMeta() Meta       { return e.Meta }
func (e UnsupportedEvent) EventMeta() Meta { return e.Meta }

func (TextEvent) Kind() string        { return "text" }
func (StickerEvent) Kind() string     { return "sticker" }
func (ImageEvent) Kind() string       { return "image" }
func (UnsupportedEvent) Kind() string { return "unsupported" }
