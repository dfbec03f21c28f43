package push

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
)

const defaultTTL = 60 * 60 * 24 // seconds

// Message is the payload handed to the service worker on the device.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag,omitempty"`
}

// Sender delivers encrypted Web Push messages to stored endpoints, one
// user (targeted) or everyone (broadcast fan-out). Delivery is
// best-effort: per-endpoint failures are logged, dead endpoints are
// pruned, and none of it surfaces to the caller.
type Sender struct {
	store      SubscriptionStore
	publicKey  string
	privateKey string
	subscriber string
	ttl        int

	// swapped in tests
	send func(ctx context.Context, payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)
}

func NewSender(store SubscriptionStore, publicKey, privateKey, subscriber string) *Sender {
	return &Sender{
		store:      store,
		publicKey:  publicKey,
		privateKey: privateKey,
		subscriber: subscriber,
		ttl:        defaultTTL,
		send:       webpush.SendNotificationWithContext,
	}
}

// Configured reports whether VAPID keys are present. An unconfigured
// sender silently skips delivery; the rest of the application keeps
// working without push.
func (s *Sender) Configured() bool {
	return s.publicKey != "" && s.privateKey != ""
}

// PublicKey is the VAPID public key clients need to register.
func (s *Sender) PublicKey() string {
	return s.publicKey
}

// SendToUser delivers msg to every endpoint registered for userID.
func (s *Sender) SendToUser(ctx context.Context, userID uint, msg Message) error {
	if !s.Configured() {
		log.Println("VAPID keys not configured, skipping push")
		return nil
	}

	subs, err := s.store.ForUser(ctx, userID)
	if err != nil {
		return err
	}

	s.fanOut(ctx, subs, msg)
	return nil
}

// Broadcast fans msg out to every stored subscription.
func (s *Sender) Broadcast(ctx context.Context, msg Message) error {
	if !s.Configured() {
		log.Println("VAPID keys not configured, skipping push")
		return nil
	}

	subs, err := s.store.All(ctx)
	if err != nil {
		return err
	}

	s.fanOut(ctx, subs, msg)
	return nil
}

func (s *Sender) fanOut(ctx context.Context, subs []Subscription, msg Message) {
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal push payload: %v", err)
		return
	}

	for _, sub := range subs {
		target := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dhKey,
				Auth:   sub.AuthKey,
			},
		}

		resp, err := s.send(ctx, payload, target, &webpush.Options{
			Subscriber:      s.subscriber,
			VAPIDPublicKey:  s.publicKey,
			VAPIDPrivateKey: s.privateKey,
			TTL:             s.ttl,
		})
		if err != nil {
			log.Printf("Push to user %d failed: %v", sub.UserID, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
			// The push service dropped this endpoint; remove our copy.
			log.Printf("Pruning dead push subscription for user %d (status %d)", sub.UserID, resp.StatusCode)
			if err := s.store.Delete(ctx, sub.UserID); err != nil {
				log.Printf("Failed to prune subscription for user %d: %v", sub.UserID, err)
			}
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(resp.Body)
			log.Printf("Push to user %d returned status %d: %s", sub.UserID, resp.StatusCode, string(body))
		}

		resp.Body.Close()
	}
}
