package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"testing"
)

// sign returns the signature LINE sends for body.
func sign(channelSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	t.Parallel()

	const secret = "channel-secret"
	body := []byte(`{"destination":"U0","events":[]}`)
	valid := sign(secret, body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		wantErr   bool
	}{
		{"valid", secret, body, valid, false},
		{"valid with whitespace", secret, body, " " + valid + "\n", false},
		{"missing signature", secret, body, "", true},
		{"not base64", secret, body, "%%%", true},
		{"wrong secret", "other", body, valid, true},
		{"tampered body", secret, []byte(`{"destination":"U1","events":[]}`), valid, true},
		{"empty secret", "", body, valid, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := VerifySignature(tc.secret, tc.body, tc.signature)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidSignature) {
					t.Errorf("VerifySignature() error = %v, want ErrInvalidSignature", err)
				}
				return
			}
			if err != nil {
				t.Errorf("VerifySignature() unexpected error: %v", err)
			}
		})
	}
}
