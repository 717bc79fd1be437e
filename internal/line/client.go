package line

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/edgard/linerelay/internal/config"
)

var (
	// ErrContentTooLarge is returned when message content exceeds the configured limit.
	ErrContentTooLarge = errors.New("message content too large")
	// ErrContentUnavailable is returned when LINE does not serve the content.
	ErrContentUnavailable = errors.New("message content unavailable")
)

type replyFunc func(ctx context.Context, req *messaging_api.ReplyMessageRequest) error

type contentFunc func(ctx context.Context, messageID string) (*http.Response, error)

// Client sends replies and downloads message content. Each reply is a
// single call; reply tokens are single use, so failures are not retried.
type Client struct {
	reply           replyFunc
	content         contentFunc
	log             *slog.Logger
	requestTimeout  time.Duration
	maxContentBytes int64
}

// NewClient creates the messaging and blob API clients for the channel.
func NewClient(cfg config.LineConfig, log *slog.Logger) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging api client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(cfg.ChannelAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging blob client: %w", err)
	}

	reply := func(ctx context.Context, req *messaging_api.ReplyMessageRequest) error {
		_, err := api.WithContext(ctx).ReplyMessage(req)
		return err
	}
	content := func(ctx context.Context, messageID string) (*http.Response, error) {
		return blob.WithContext(ctx).GetMessageContent(messageID)
	}

	return newClient(reply, content, cfg, log), nil
}

func newClient(reply replyFunc, content contentFunc, cfg config.LineConfig, log *slog.Logger) *Client {
	return &Client{
		reply:           reply,
		content:         content,
		log:             log.With("component", "line_client"),
		requestTimeout:  cfg.RequestTimeout,
		maxContentBytes: cfg.MaxContentBytes,
	}
}

// ReplyText replies with a single text message.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	return c.send(ctx, replyToken, "text", messaging_api.TextMessage{Text: text})
}

// ReplySticker replies with a single sticker message.
func (c *Client) ReplySticker(ctx context.Context, replyToken, packageID, stickerID string) error {
	return c.send(ctx, replyToken, "sticker", messaging_api.StickerMessage{PackageId: packageID, StickerId: stickerID})
}

func (c *Client) send(ctx context.Context, replyToken, msgType string, msg messaging_api.MessageInterface) error {
	if replyToken == "" {
		return fmt.Errorf("reply token is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	err := c.reply(ctx, &messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{msg},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}

	c.log.DebugContext(ctx, "Reply sent", "message_type", msgType)
	return nil
}

// FetchContent downloads the binary content of a message, up to the
// configured size limit.
func (c *Client) FetchContent(ctx context.Context, messageID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.content(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("get message content %s: %w", messageID, err)
	}
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("%w: %s", ErrContentUnavailable, messageID)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", ErrContentUnavailable, messageID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxContentBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read message content %s: %w", messageID, err)
	}
	if int64(len(data)) > c.maxContentBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrContentTooLarge, messageID, c.maxContentBytes)
	}

	c.log.DebugContext(ctx, "Message content fetched", "message_id", messageID, "size", len(data))
	return data, nil
}
