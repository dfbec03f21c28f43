package handlers

import (
	"github.com/clubdeck/clubdeck/internal/push"
	"github.com/clubdeck/clubdeck/internal/store"
	"github.com/clubdeck/clubdeck/internal/stream"
)

// Shared collaborators, wired once from main before the router starts.
var (
	Notifications *store.NotificationStore
	Subscriptions *store.SubscriptionStore
	Pusher        *push.Sender
	Broker        *stream.Broker
)

// Configure wires the handler package and bridges the change stream to
// connected websocket clients.
func Configure(notifications *store.NotificationStore, subscriptions *store.SubscriptionStore, pusher *push.Sender, broker *stream.Broker) {
	Notifications = notifications
	Subscriptions = subscriptions
	Pusher = pusher
	Broker = broker

	watchFeedTables(broker)
}
