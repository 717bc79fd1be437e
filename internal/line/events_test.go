package line

import (
	"encoding/json"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/edgard/linerelay/internal/relay"
)

func TestToEvents_NonMessageEventsKeepMeta(t *testing.T) {
	t.Parallel()

	payload := `{
  "destination": "Uxxxxxxxx",
  "events": [
    {
      "type": "follow",
      "mode": "active",
      "timestamp": 1700000000000,
      "webhookEventId": "01FOLLOW",
      "deliveryContext": {"isRedelivery": true},
      "replyToken": "rt1",
      "source": {"type": "user", "userId": "U1"},
      "follow": {"isUnblocked": false}
    },
    {
      "type": "join",
      "mode": "active",
      "timestamp": 1700000000001,
      "webhookEventId": "01JOIN",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "rt2",
      "source": {"type": "group", "groupId": "G1"}
    },
    {
      "type": "unfollow",
      "mode": "active",
      "timestamp": 1700000000002,
      "webhookEventId": "01UNFOLLOW",
      "deliveryContext": {"isRedelivery": false},
      "source": {"type": "user", "userId": "U2"}
    }
  ]
}`

	var cb webhook.CallbackRequest
	if err := json.Unmarshal([]byte(payload), &cb); err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	events := ToEvents(&cb)
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	tests := []struct {
		typ  string
		want relay.Meta
	}{
		{"follow", relay.Meta{EventID: "01FOLLOW", ReplyToken: "rt1", SourceType: "user", SourceID: "U1", Redelivery: true}},
		{"join", relay.Meta{EventID: "01JOIN", ReplyToken: "rt2", SourceType: "group", SourceID: "G1"}},
		{"unfollow", relay.Meta{EventID: "01UNFOLLOW", SourceType: "user", SourceID: "U2"}},
	}

	for i, tc := range tests {
		ev, ok := events[i].(relay.UnsupportedEvent)
		if !ok {
			t.Errorf("event %d: got %T, want relay.UnsupportedEvent", i, events[i])
			continue
		}
		if ev.Type != tc.typ {
			t.Errorf("event %d: type = %q, want %q", i, ev.Type, tc.typ)
		}
		if got := ev.EventMeta(); got != tc.want {
			t.Errorf("event %d: meta = %+v, want %+v", i, got, tc.want)
		}
	}
}

func TestToEvents_Nil(t *testing.T) {
	t.Parallel()

	if got := ToEvents(nil); got != nil {
		t.Errorf("ToEvents(nil) = %v, want nil", got)
	}
}
