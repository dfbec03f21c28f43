package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
)

type sentPush struct {
	endpoint string
	payload  []byte
}

func pushResponse(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(""))}
}

func newTestSender(store SubscriptionStore) (*Sender, *[]sentPush) {
	var sent []sentPush

	sender := NewSender(store, "public-key", "private-key", "ops@clubdeck.example")
	sender.send = func(ctx context.Context, payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
		sent = append(sent, sentPush{endpoint: sub.Endpoint, payload: payload})
		return pushResponse(http.StatusCreated), nil
	}

	return sender, &sent
}

func seededStore() *fakeSubStore {
	store := newFakeSubStore()
	store.rows[1] = Subscription{UserID: 1, Endpoint: "https://push.example/1", P256dhKey: "k1", AuthKey: "a1"}
	store.rows[2] = Subscription{UserID: 2, Endpoint: "https://push.example/2", P256dhKey: "k2", AuthKey: "a2"}
	return store
}

func TestSendToUserTargetsOneEndpoint(t *testing.T) {
	store := seededStore()
	sender, sent := newTestSender(store)

	err := sender.SendToUser(context.Background(), 1, Message{Title: "Scrim tonight", Body: "Check your loadout"})
	if err != nil {
		t.Fatalf("SendToUser: %v", err)
	}

	if len(*sent) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(*sent))
	}
	if (*sent)[0].endpoint != "https://push.example/1" {
		t.Errorf("delivered to %q", (*sent)[0].endpoint)
	}

	var msg Message
	if err := json.Unmarshal((*sent)[0].payload, &msg); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if msg.Title != "Scrim tonight" {
		t.Errorf("payload title = %q", msg.Title)
	}
}

func TestBroadcastFansOutToAllSubscriptions(t *testing.T) {
	store := seededStore()
	sender, sent := newTestSender(store)

	if err := sender.Broadcast(context.Background(), Message{Title: "New announcement"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	if len(*sent) != 2 {
		t.Fatalf("deliveries = %d, want 2", len(*sent))
	}
}

func TestFanOutPrunesDeadEndpoints(t *testing.T) {
	store := seededStore()
	sender, _ := newTestSender(store)
	sender.send = func(ctx context.Context, payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
		if sub.Endpoint == "https://push.example/1" {
			return pushResponse(http.StatusGone), nil
		}
		return pushResponse(http.StatusCreated), nil
	}

	if err := sender.Broadcast(context.Background(), Message{Title: "hello"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	if _, ok := store.rows[1]; ok {
		t.Error("gone endpoint not pruned")
	}
	if _, ok := store.rows[2]; !ok {
		t.Error("healthy endpoint pruned")
	}
}

func TestUnconfiguredSenderSkipsDelivery(t *testing.T) {
	store := seededStore()
	sender, sent := newTestSender(store)
	sender.publicKey = ""

	if err := sender.SendToUser(context.Background(), 1, Message{Title: "x"}); err != nil {
		t.Fatalf("SendToUser: %v", err)
	}
	if err := sender.Broadcast(context.Background(), Message{Title: "x"}); err != nil {
		t.Fatalf("Broadcast: %v", err)
	}

	if len(*sent) != 0 {
		t.Errorf("deliveries = %d, want 0 when unconfigured", len(*sent))
	}
}

func TestFanOutVAPIDOptions(t *testing.T) {
	store := seededStore()
	sender, _ := newTestSender(store)

	var gotOpts *webpush.Options
	sender.send = func(ctx context.Context, payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
		gotOpts = opts
		return pushResponse(http.StatusCreated), nil
	}

	if err := sender.SendToUser(context.Background(), 1, Message{Title: "x"}); err != nil {
		t.Fatalf("SendToUser: %v", err)
	}

	if gotOpts == nil {
		t.Fatal("no delivery attempted")
	}
	if gotOpts.VAPIDPublicKey != "public-key" || gotOpts.VAPIDPrivateKey != "private-key" {
		t.Error("VAPID keys not passed through")
	}
	if gotOpts.Subscriber != "ops@clubdeck.example" {
		t.Errorf("subscriber = %q", gotOpts.Subscriber)
	}
	if gotOpts.TTL != defaultTTL {
		t.Errorf("TTL = %d, want %d", gotOpts.TTL, defaultTTL)
	}
}
