package push

import (
	"context"
	"log"
	"sync"
)

// User-facing outcomes. The corrective action differs per failure, so
// each gets its own message instead of one generic error.
const (
	MsgUnsupported      = "Push notifications are not supported by this browser"
	MsgPermissionDenied = "Notifications are blocked. Allow them in your browser settings and try again"
	MsgServerKeyMissing = "Push notifications are not configured on this server. Contact support"
	MsgRegisterFailed   = "Could not register for push notifications. Try again later"
	MsgStoreFailed      = "Could not save your push subscription. Try again later"
	MsgUnregisterFailed = "Could not disable push notifications on this device"
	MsgSubscribed       = "Push notifications enabled"
	MsgUnsubscribed     = "Push notifications disabled"
	MsgTestSent         = "Test notification shown"
	MsgTestFailed       = "Could not show a test notification"
)

// Result is how every manager operation reports: a boolean outcome plus
// a message the UI can surface verbatim. Nothing here is fatal to the
// session.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Manager drives the permission × subscription state machine and keeps
// the store's copy of the registration in sync with the platform's.
// Only granted × subscribed allows delivery; every other combination
// degrades to a boolean failure.
type Manager struct {
	platform  Platform
	store     SubscriptionStore
	serverKey string

	mu         sync.Mutex
	subscribed bool
	endpoint   string
}

func NewManager(platform Platform, store SubscriptionStore, serverKey string) *Manager {
	return &Manager{platform: platform, store: store, serverKey: serverKey}
}

func (m *Manager) Supported() bool {
	return m.platform.Supported()
}

// PermissionState re-polls the platform on every call. A denied answer
// is never cached: the user can reset it from browser UI, which
// resurfaces as default.
func (m *Manager) PermissionState() Permission {
	if !m.platform.Supported() {
		return PermissionDefault
	}
	return m.platform.Permission()
}

func (m *Manager) IsSubscribed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscribed
}

// Subscribe negotiates permission, obtains (or reuses) a platform
// registration and upserts it into the store keyed by userID. It reports
// success only when both the registration and the store write land.
func (m *Manager) Subscribe(ctx context.Context, userID uint) Result {
	if !m.platform.Supported() {
		return Result{OK: false, Message: MsgUnsupported}
	}

	perm, err := m.platform.RequestPermission(ctx)
	if err != nil {
		log.Printf("Permission request failed: %v", err)
		return Result{OK: false, Message: MsgRegisterFailed}
	}
	if perm != PermissionGranted {
		return Result{OK: false, Message: MsgPermissionDenied}
	}

	reg, err := m.platform.Registration(ctx)
	if err != nil {
		log.Printf("Failed to read existing registration: %v", err)
		return Result{OK: false, Message: MsgRegisterFailed}
	}

	if reg == nil {
		if m.serverKey == "" {
			return Result{OK: false, Message: MsgServerKeyMissing}
		}

		reg, err = m.platform.Register(ctx, m.serverKey)
		if err != nil || reg == nil {
			log.Printf("Push registration failed: %v", err)
			return Result{OK: false, Message: MsgRegisterFailed}
		}
	}

	sub := Subscription{
		UserID:    userID,
		Endpoint:  reg.Endpoint(),
		P256dhKey: EncodeKey(reg.Key(KeyP256dh)),
		AuthKey:   EncodeKey(reg.Key(KeyAuth)),
	}

	if err := m.store.Upsert(ctx, sub); err != nil {
		log.Printf("Failed to store push subscription for user %d: %v", userID, err)
		return Result{OK: false, Message: MsgStoreFailed}
	}

	m.mu.Lock()
	m.subscribed = true
	m.endpoint = sub.Endpoint
	m.mu.Unlock()

	return Result{OK: true, Message: MsgSubscribed}
}

// Unsubscribe is best-effort, local-first: the store delete runs first
// and its failure is logged and ignored, because a stale store row is a
// lesser problem than a device that cannot turn notifications off.
func (m *Manager) Unsubscribe(ctx context.Context, userID uint) Result {
	if !m.platform.Supported() {
		return Result{OK: false, Message: MsgUnsupported}
	}

	if err := m.store.Delete(ctx, userID); err != nil {
		log.Printf("Failed to delete push subscription for user %d (continuing): %v", userID, err)
	}

	m.mu.Lock()
	m.subscribed = false
	m.endpoint = ""
	m.mu.Unlock()

	if _, err := m.platform.Unregister(ctx); err != nil {
		log.Printf("Platform unregister failed: %v", err)
		return Result{OK: false, Message: MsgUnregisterFailed}
	}

	if err := m.platform.ClearBadge(); err != nil {
		log.Printf("Failed to clear badge: %v", err)
	}

	return Result{OK: true, Message: MsgUnsubscribed}
}

// SyncFromPlatform mirrors the platform's registration into local state.
// It is read-only reconciliation: store writes only ever happen through
// Subscribe, so running this concurrently with anything is safe.
func (m *Manager) SyncFromPlatform(ctx context.Context) error {
	reg, err := m.platform.Registration(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if reg == nil {
		m.subscribed = false
		m.endpoint = ""
		return nil
	}

	m.subscribed = true
	m.endpoint = reg.Endpoint()
	return nil
}

// SubscriptionChanged handles the platform's advisory signal that it
// silently rotated the registration.
func (m *Manager) SubscriptionChanged(ctx context.Context) {
	if err := m.SyncFromPlatform(ctx); err != nil {
		log.Printf("Subscription-change sync failed: %v", err)
	}
}

// TestLocalNotification shows a notification on this device without a
// server round-trip.
func (m *Manager) TestLocalNotification(ctx context.Context) Result {
	if !m.platform.Supported() {
		return Result{OK: false, Message: MsgUnsupported}
	}
	if m.platform.Permission() != PermissionGranted {
		return Result{OK: false, Message: MsgPermissionDenied}
	}

	opts := NotificationOptions{Body: "Notifications are working on this device", Tag: "clubdeck-test"}
	if err := m.platform.ShowNotification(ctx, "Clubdeck", opts); err != nil {
		log.Printf("Local test notification failed: %v", err)
		return Result{OK: false, Message: MsgTestFailed}
	}

	return Result{OK: true, Message: MsgTestSent}
}

// UpdateBadge mirrors the unread count onto the device badge while a
// subscription is live.
func (m *Manager) UpdateBadge(count int) {
	if !m.platform.Supported() || !m.IsSubscribed() {
		return
	}

	var err error
	if count <= 0 {
		err = m.platform.ClearBadge()
	} else {
		err = m.platform.SetBadge(count)
	}
	if err != nil {
		log.Printf("Failed to update badge: %v", err)
	}
}
