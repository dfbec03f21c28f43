// Package push manages browser push registrations: the client-side
// subscription lifecycle (permission, key exchange, store sync) and the
// server-side VAPID fan-out delivery.
package push

import (
	"context"
	"encoding/base64"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// Key names used by the push encryption scheme.
const (
	KeyP256dh = "p256dh"
	KeyAuth   = "auth"
)

// Registration is a platform-assigned push channel: the endpoint URL and
// the raw binary keys needed to encrypt messages to it.
type Registration interface {
	Endpoint() string
	Key(name string) []byte
}

type NotificationOptions struct {
	Body string
	Icon string
	Tag  string
}

// Platform is the user agent's push machinery (service worker manager,
// Push API, Notification API, badge API). The production implementation
// runs in the browser runtime; tests use fakes.
type Platform interface {
	Supported() bool
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)

	// Registration returns the existing registration, or nil when the
	// platform holds none.
	Registration(ctx context.Context) (Registration, error)
	Register(ctx context.Context, serverKey string) (Registration, error)
	Unregister(ctx context.Context) (bool, error)

	ShowNotification(ctx context.Context, title string, opts NotificationOptions) error
	SetBadge(count int) error
	ClearBadge() error
}

// Subscription is one user's stored push endpoint. Keys are standard
// Base64 text, the encoding the store columns and the delivery service
// agree on.
type Subscription struct {
	UserID    uint   `json:"user_id"`
	Endpoint  string `json:"endpoint"`
	P256dhKey string `json:"p256dh_key"`
	AuthKey   string `json:"auth_key"`
}

// SubscriptionStore persists at most one subscription per user; Upsert
// overwrites on conflict.
type SubscriptionStore interface {
	Upsert(ctx context.Context, sub Subscription) error
	Delete(ctx context.Context, userID uint) error
	ForUser(ctx context.Context, userID uint) ([]Subscription, error)
	All(ctx context.Context) ([]Subscription, error)
}

// EncodeKey transcodes a raw platform key to standard Base64 for the
// textual store column. The inverse happens server-side in the delivery
// path, never here.
func EncodeKey(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}
