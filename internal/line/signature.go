// Package line connects the relay to the LINE Messaging API: webhook
// signature checks, event conversion, the callback handler, and the reply
// and content clients.
package line

import (
	"errors"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// SignatureHeader is the request header carrying the body signature.
const SignatureHeader = "X-Line-Signature"

// ErrInvalidSignature is returned when the signature is missing or does not match.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// VerifySignature checks the body signature against the channel secret.
// The body is read by the caller so it can be size-limited first.
func VerifySignature(channelSecret string, body []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if channelSecret == "" || signature == "" {
		return ErrInvalidSignature
	}
	if !webhook.ValidateSignature(channelSecret, signature, body) {
		return ErrInvalidSignature
	}
	return nil
}
