package notify

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/clubdeck/clubdeck/internal/stream"
)

// DefaultAnnouncementLimit bounds how many recent announcements the
// broadcast query pulls into the feed.
const DefaultAnnouncementLimit = 20

// Aggregator owns the merged feed for one caller. Every trigger performs
// a full rebuild: the four origin queries run in parallel, their results
// are merged deterministically, and the feed value is swapped wholesale.
// A failed rebuild leaves the previous feed in place.
type Aggregator struct {
	store             Store
	userID            uint
	admin             bool
	announcementLimit int

	mu     sync.RWMutex
	feed   []Item
	unread int

	// called after every successful rebuild with the new unread count
	onRebuild func(unread int)
}

func NewAggregator(store Store, userID uint, admin bool) *Aggregator {
	return &Aggregator{
		store:             store,
		userID:            userID,
		admin:             admin,
		announcementLimit: DefaultAnnouncementLimit,
	}
}

// OnRebuild registers a hook invoked after each successful rebuild, e.g.
// to mirror the unread count into a device badge. Must be set before the
// aggregator starts receiving triggers.
func (a *Aggregator) OnRebuild(fn func(unread int)) {
	a.onRebuild = fn
}

// Rebuild re-queries all origins and replaces the feed. The admin query
// is gated here, at the query layer: a non-admin caller never fetches
// admin rows, not even transiently.
func (a *Aggregator) Rebuild(ctx context.Context) error {
	queries := []func(context.Context) ([]Item, error){
		func(ctx context.Context) ([]Item, error) { return a.store.Announcements(ctx, a.announcementLimit) },
		a.store.EventNotifications,
		nil, // admin slot, filled below
		func(ctx context.Context) ([]Item, error) { return a.store.UserNotifications(ctx, a.userID) },
	}
	if a.admin {
		queries[2] = a.store.AdminNotifications
	}

	results := make([][]Item, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, query := range queries {
		if query == nil {
			continue
		}
		wg.Add(1)
		go func(i int, query func(context.Context) ([]Item, error)) {
			defer wg.Done()
			results[i], errs[i] = query(ctx)
		}(i, query)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	merged := mergeFeed(results)
	unread := countUnread(merged)

	a.mu.Lock()
	a.feed = merged
	a.unread = unread
	a.mu.Unlock()

	if a.onRebuild != nil {
		a.onRebuild(unread)
	}

	return nil
}

// Feed returns a copy of the current merged view, newest first.
func (a *Aggregator) Feed() []Item {
	a.mu.RLock()
	defer a.mu.RUnlock()

	feed := make([]Item, len(a.feed))
	copy(feed, a.feed)
	return feed
}

func (a *Aggregator) UnreadCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.unread
}

// unreadIDs returns the non-broadcast unread IDs in the current feed,
// i.e. the set a mark-all-read mutation should touch.
func (a *Aggregator) unreadIDs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var ids []string
	for _, item := range a.feed {
		if item.Status == StatusUnread && !IsAnnouncementID(item.ID) {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Watch subscribes the aggregator to insert/update events on the feed
// tables. Each event triggers a full rebuild; a rebuild failure is
// logged and the previous feed survives until the next trigger.
func (a *Aggregator) Watch(broker *stream.Broker) *stream.Subscription {
	tables := []string{TableAnnouncements, TableNotifications}
	ops := []stream.Op{stream.OpInsert, stream.OpUpdate}

	return broker.Subscribe(tables, ops, func(event stream.Event) {
		if err := a.Rebuild(context.Background()); err != nil {
			log.Printf("Feed rebuild after %s on %s failed: %v", event.Op, event.Table, err)
		}
	})
}

// mergeFeed implements the deterministic merge: concatenate the origin
// results in priority order, deduplicate by ID keeping the first
// occurrence, then stable-sort by timestamp descending so that equal
// timestamps keep the concatenation order.
func mergeFeed(groups [][]Item) []Item {
	seen := make(map[string]bool)
	var merged []Item

	for _, group := range groups {
		for _, item := range group {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true

			if item.Message == "" {
				item.Message = item.Title
			}
			if item.Origin == OriginBroadcast {
				// Announcements carry no per-user read state.
				item.Status = StatusUnread
			}
			merged = append(merged, item)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp.After(merged[j].Timestamp)
	})

	return merged
}

func countUnread(items []Item) int {
	count := 0
	for _, item := range items {
		if item.Status == StatusUnread {
			count++
		}
	}
	return count
}
