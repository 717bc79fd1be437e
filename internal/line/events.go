package line

import (
	"encoding/json"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/edgard/linerelay/internal/relay"
)

// ToEvents converts a decoded callback into relay events, keeping their order.
// Anything other than text, sticker and image messages becomes an
// UnsupportedEvent.
func ToEvents(cb *webhook.CallbackRequest) []relay.Event {
	if cb == nil {
		return nil
	}

	events := make([]relay.Event, 0, len(cb.Events))
	for _, ev := range cb.Events {
		events = append(events, toEvent(ev))
	}
	return events
}

func toEvent(ev webhook.EventInterface) relay.Event {
	msg, ok := ev.(webhook.MessageEvent)
	if !ok {
		if ptr, isPtr := ev.(*webhook.MessageEvent); isPtr && ptr != nil {
			msg, ok = *ptr, true
		}
	}
	if !ok {
		return relay.UnsupportedEvent{Meta: envelopeMeta(ev), Type: eventType(ev)}
	}

	meta := relay.Meta{
		EventID:    msg.WebhookEventId,
		ReplyToken: msg.ReplyToken,
	}
	meta.SourceType, meta.SourceID = source(msg.Source)
	if msg.DeliveryContext != nil {
		meta.Redelivery = msg.DeliveryContext.IsRedelivery
	}

	switch m := msg.Message.(type) {
	case webhook.TextMessageContent:
		return relay.TextEvent{Meta: meta, Text: m.Text}
	case webhook.StickerMessageContent:
		return relay.StickerEvent{Meta: meta, PackageID: m.PackageId, StickerID: m.StickerId}
	case webhook.ImageMessageContent:
		return relay.ImageEvent{Meta: meta, ContentID: m.Id}
	case nil:
		return relay.UnsupportedEvent{Meta: meta, Type: "message"}
	default:
		return relay.UnsupportedEvent{Meta: meta, Type: "message/" + m.GetType()}
	}
}

// eventEnvelope holds the fields every webhook event kind shares.
type eventEnvelope struct {
	WebhookEventID  string `json:"webhookEventId"`
	ReplyToken      string `json:"replyToken"`
	DeliveryContext *struct {
		IsRedelivery bool `json:"isRedelivery"`
	} `json:"deliveryContext"`
	Source *struct {
		Type    string `json:"type"`
		UserID  string `json:"userId"`
		GroupID string `json:"groupId"`
		RoomID  string `json:"roomId"`
	} `json:"source"`
}

// envelopeMeta reads the shared fields of a non-message event. The SDK models
// each event kind as its own struct, so the fields are taken from the event's
// JSON form instead of a type switch over every kind.
func envelopeMeta(ev webhook.EventInterface) relay.Meta {
	if ev == nil {
		return relay.Meta{}
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return relay.Meta{}
	}
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return relay.Meta{}
	}

	meta := relay.Meta{EventID: env.WebhookEventID, ReplyToken: env.ReplyToken}
	if env.DeliveryContext != nil {
		meta.Redelivery = env.DeliveryContext.IsRedelivery
	}
	if src := env.Source; src != nil {
		switch {
		case src.Type == "group" || (src.Type == "" && src.GroupID != ""):
			meta.SourceType, meta.SourceID = "group", src.GroupID
		case src.Type == "room" || (src.Type == "" && src.RoomID != ""):
			meta.SourceType, meta.SourceID = "room", src.RoomID
		case src.Type == "user" || (src.Type == "" && src.UserID != ""):
			meta.SourceType, meta.SourceID = "user", src.UserID
		}
	}
	return meta
}

func eventType(ev webhook.EventInterface) string {
	if ev == nil {
		return "unknown"
	}
	return ev.GetType()
}

// source returns the conversation kind and the ID replies are addressed to.
func source(src webhook.SourceInterface) (string, string) {
	switch s := src.(type) {
	case webhook.UserSource:
		return "user", s.UserId
	case webhook.GroupSource:
		return "group", s.GroupId
	case webhook.RoomSource:
		return "room", s.RoomId
	default:
		return "", ""
	}
}
