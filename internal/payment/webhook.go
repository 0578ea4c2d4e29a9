package payment

import (
	"crypto/subtle"

	"github.com/go-faster/jx"
)

// VerifyWebhookSignature checks the gateway's verif-hash header against the
// merchant's configured webhook secret using a constant-time comparison.
func VerifyWebhookSignature(header string, secret []byte) bool {
	if len(secret) == 0 || header == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(header), secret) == 1
}

// WebhookEvent is the subset of a gateway webhook delivery the service acts
// on.
type WebhookEvent struct {
	Event         string
	TxRef         string
	TransactionID int64
	Status        string
}

// Successful reports whether the delivery describes a completed charge.
func (w *WebhookEvent) Successful() bool {
	return w.Status == "successful" || w.Status == "completed"
}

// DecodeWebhook parses a webhook delivery body.
func DecodeWebhook(body []byte) (*WebhookEvent, error) {
	ev := &WebhookEvent{}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "event":
			v, err := d.Str()
			ev.Event = v
			return err
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "id":
					v, err := d.Int64()
					ev.TransactionID = v
					return err
				case "tx_ref":
					v, err := d.Str()
					ev.TxRef = v
					return err
				case "status":
					v, err := d.Str()
					ev.Status = v
					return err
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return ev, nil
}
