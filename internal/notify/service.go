package notify

import (
	"context"

	"github.com/clubdeck/clubdeck/internal/push"
	"github.com/clubdeck/clubdeck/internal/stream"
)

// Service is the per-session notification surface: the merged feed, the
// mutation operations and the push-subscription lifecycle behind one
// facade. It holds no authoritative state; everything it exposes is
// derived from the store and the platform and rebuilt on every signal.
type Service struct {
	agg     *Aggregator
	gateway *Gateway
	manager *push.Manager
	sub     *stream.Subscription
}

func NewService(store Store, manager *push.Manager, userID uint, admin bool) *Service {
	agg := NewAggregator(store, userID, admin)
	agg.OnRebuild(manager.UpdateBadge)

	return &Service{
		agg:     agg,
		gateway: NewGateway(store, agg),
		manager: manager,
	}
}

// Start performs the initial load, reconciles the push registration with
// the platform, and subscribes to the change stream. The stream
// subscription is released by Close.
func (s *Service) Start(ctx context.Context, broker *stream.Broker) error {
	s.manager.SubscriptionChanged(ctx)
	s.sub = s.agg.Watch(broker)
	return s.agg.Rebuild(ctx)
}

// Close releases the change-stream subscription.
func (s *Service) Close() {
	if s.sub != nil {
		s.sub.Close()
	}
}

func (s *Service) Feed() []Item { return s.agg.Feed() }

func (s *Service) UnreadCount() int { return s.agg.UnreadCount() }

func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.gateway.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context) error {
	return s.gateway.MarkAllRead(ctx)
}

func (s *Service) Send(ctx context.Context, recipientID uint, kind, title, message string, payload map[string]any) (Item, error) {
	return s.gateway.Send(ctx, recipientID, kind, title, message, payload)
}

func (s *Service) IsSupported() bool { return s.manager.Supported() }

func (s *Service) IsSubscribed() bool { return s.manager.IsSubscribed() }

func (s *Service) PermissionState() push.Permission { return s.manager.PermissionState() }

func (s *Service) Subscribe(ctx context.Context, userID uint) push.Result {
	return s.manager.Subscribe(ctx, userID)
}

func (s *Service) Unsubscribe(ctx context.Context, userID uint) push.Result {
	return s.manager.Unsubscribe(ctx, userID)
}

func (s *Service) TestLocalNotification(ctx context.Context) push.Result {
	return s.manager.TestLocalNotification(ctx)
}
