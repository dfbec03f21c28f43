package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clubdeck/clubdeck/internal/stream"
)

type fakeStore struct {
	mu sync.Mutex

	announcements []Item
	events        []Item
	adminItems    []Item
	userItems     []Item

	announcementsErr error
	eventsErr        error
	adminErr         error
	userErr          error
	markReadErr      error
	markAllReadErr   error
	insertErr        error

	adminQueries    int
	markReadIDs     []string
	markAllReadSets [][]string
	inserted        []Item
}

func (s *fakeStore) Announcements(ctx context.Context, limit int) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.announcementsErr != nil {
		return nil, s.announcementsErr
	}
	if len(s.announcements) > limit {
		return append([]Item(nil), s.announcements[:limit]...), nil
	}
	return append([]Item(nil), s.announcements...), nil
}

func (s *fakeStore) EventNotifications(ctx context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eventsErr != nil {
		return nil, s.eventsErr
	}
	return append([]Item(nil), s.events...), nil
}

func (s *fakeStore) AdminNotifications(ctx context.Context) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adminQueries++
	if s.adminErr != nil {
		return nil, s.adminErr
	}
	return append([]Item(nil), s.adminItems...), nil
}

func (s *fakeStore) UserNotifications(ctx context.Context, userID uint) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userErr != nil {
		return nil, s.userErr
	}
	return append([]Item(nil), s.userItems...), nil
}

func (s *fakeStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markReadErr != nil {
		return s.markReadErr
	}
	s.markReadIDs = append(s.markReadIDs, id)
	s.setStatus(StatusRead, id)
	return nil
}

func (s *fakeStore) MarkAllRead(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markAllReadErr != nil {
		return s.markAllReadErr
	}
	s.markAllReadSets = append(s.markAllReadSets, append([]string(nil), ids...))
	s.setStatus(StatusRead, ids...)
	return nil
}

func (s *fakeStore) Insert(ctx context.Context, recipientID uint, kind, title, message string, payload map[string]any) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return Item{}, s.insertErr
	}
	item := Item{
		ID:        fmt.Sprintf("sent-%d", len(s.inserted)+1),
		Origin:    OriginUser,
		Kind:      kind,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Status:    StatusUnread,
		Payload:   payload,
	}
	s.inserted = append(s.inserted, item)
	s.userItems = append(s.userItems, item)
	return item, nil
}

func (s *fakeStore) setStatus(status Status, ids ...string) {
	for _, list := range [][]Item{s.events, s.adminItems, s.userItems} {
		for i := range list {
			for _, id := range ids {
				if list[i].ID == id {
					list[i].Status = status
				}
			}
		}
	}
}

var baseTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

func item(id string, origin Origin, minutes int, status Status) Item {
	return Item{
		ID:        id,
		Origin:    origin,
		Kind:      "test",
		Title:     "title " + id,
		Timestamp: at(minutes),
		Status:    status,
	}
}

func feedIDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func scenarioStore() *fakeStore {
	return &fakeStore{
		announcements: []Item{
			item("announcement-1", OriginBroadcast, 10, StatusUnread),
			item("announcement-2", OriginBroadcast, 5, StatusUnread),
		},
		events:     []Item{item("event-1", OriginEvent, 8, StatusUnread)},
		adminItems: []Item{item("admin-1", OriginAdmin, 20, StatusUnread)},
	}
}

func TestRebuildMergeOrder(t *testing.T) {
	agg := NewAggregator(scenarioStore(), 7, true)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	want := []string{"admin-1", "announcement-1", "event-1", "announcement-2"}
	got := feedIDs(agg.Feed())

	if len(got) != len(want) {
		t.Fatalf("feed length = %d, want %d (%v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("feed order = %v, want %v", got, want)
		}
	}

	if agg.UnreadCount() != 4 {
		t.Errorf("UnreadCount = %d, want 4", agg.UnreadCount())
	}
}

func TestRebuildNonAdminSkipsAdminQuery(t *testing.T) {
	store := scenarioStore()
	agg := NewAggregator(store, 7, false)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	feed := agg.Feed()
	if len(feed) != 3 {
		t.Fatalf("feed length = %d, want 3", len(feed))
	}
	for _, it := range feed {
		if it.Origin == OriginAdmin {
			t.Fatalf("non-admin feed contains admin item %s", it.ID)
		}
	}

	if agg.UnreadCount() != 3 {
		t.Errorf("UnreadCount = %d, want 3", agg.UnreadCount())
	}
	if store.adminQueries != 0 {
		t.Errorf("admin query issued %d times for non-admin caller", store.adminQueries)
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	agg := NewAggregator(scenarioStore(), 7, true)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	first := feedIDs(agg.Feed())

	for i := 0; i < 5; i++ {
		if err := agg.Rebuild(context.Background()); err != nil {
			t.Fatalf("Rebuild %d: %v", i, err)
		}
		got := feedIDs(agg.Feed())
		for j := range first {
			if got[j] != first[j] {
				t.Fatalf("rebuild %d order = %v, want %v", i, got, first)
			}
		}
	}
}

func TestDedupKeepsEarlierOrigin(t *testing.T) {
	store := &fakeStore{
		events:    []Item{item("dup-1", OriginEvent, 8, StatusUnread)},
		userItems: []Item{item("dup-1", OriginUser, 3, StatusRead)},
	}
	agg := NewAggregator(store, 7, false)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	feed := agg.Feed()
	if len(feed) != 1 {
		t.Fatalf("feed length = %d, want 1", len(feed))
	}
	if feed[0].Origin != OriginEvent {
		t.Errorf("kept origin = %s, want %s", feed[0].Origin, OriginEvent)
	}
	if feed[0].Timestamp != at(8) {
		t.Errorf("kept timestamp = %v, want the event row's", feed[0].Timestamp)
	}
}

func TestEqualTimestampsKeepConcatenationOrder(t *testing.T) {
	store := &fakeStore{
		announcements: []Item{item("announcement-1", OriginBroadcast, 10, StatusUnread)},
		events:        []Item{item("event-1", OriginEvent, 10, StatusUnread)},
		userItems:     []Item{item("user-1", OriginUser, 10, StatusUnread)},
	}
	agg := NewAggregator(store, 7, false)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	want := []string{"announcement-1", "event-1", "user-1"}
	got := feedIDs(agg.Feed())
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("tie order = %v, want %v", got, want)
		}
	}
}

func TestMessageFallsBackToTitle(t *testing.T) {
	row := item("event-1", OriginEvent, 1, StatusUnread)
	row.Message = ""
	store := &fakeStore{events: []Item{row}}
	agg := NewAggregator(store, 7, false)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	feed := agg.Feed()
	if feed[0].Message != feed[0].Title {
		t.Errorf("Message = %q, want fallback to title %q", feed[0].Message, feed[0].Title)
	}
}

func TestBroadcastAlwaysUnread(t *testing.T) {
	row := item("announcement-9", OriginBroadcast, 1, StatusRead)
	store := &fakeStore{announcements: []Item{row}}
	agg := NewAggregator(store, 7, false)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	feed := agg.Feed()
	if feed[0].Status != StatusUnread {
		t.Errorf("broadcast status = %s, want unread", feed[0].Status)
	}
	if agg.UnreadCount() != 1 {
		t.Errorf("UnreadCount = %d, want 1", agg.UnreadCount())
	}
}

func TestFailedRebuildKeepsPreviousFeed(t *testing.T) {
	store := scenarioStore()
	agg := NewAggregator(store, 7, true)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	before := feedIDs(agg.Feed())
	unreadBefore := agg.UnreadCount()

	store.mu.Lock()
	store.eventsErr = errors.New("connection reset")
	store.mu.Unlock()

	if err := agg.Rebuild(context.Background()); err == nil {
		t.Fatal("Rebuild succeeded despite query failure")
	}

	after := feedIDs(agg.Feed())
	if len(after) != len(before) {
		t.Fatalf("feed changed after failed rebuild: %v -> %v", before, after)
	}
	for i := range before {
		if after[i] != before[i] {
			t.Fatalf("feed changed after failed rebuild: %v -> %v", before, after)
		}
	}
	if agg.UnreadCount() != unreadBefore {
		t.Errorf("UnreadCount changed after failed rebuild: %d -> %d", unreadBefore, agg.UnreadCount())
	}
}

func TestAnnouncementLimitApplied(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < DefaultAnnouncementLimit+5; i++ {
		store.announcements = append(store.announcements,
			item(fmt.Sprintf("announcement-%d", i), OriginBroadcast, i, StatusUnread))
	}
	agg := NewAggregator(store, 7, false)

	if err := agg.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	if got := len(agg.Feed()); got != DefaultAnnouncementLimit {
		t.Errorf("feed length = %d, want %d", got, DefaultAnnouncementLimit)
	}
}

func TestWatchRebuildsOnStreamEvents(t *testing.T) {
	store := scenarioStore()
	agg := NewAggregator(store, 7, true)
	broker := stream.NewBroker()

	sub := agg.Watch(broker)
	defer sub.Close()

	broker.Publish(stream.Event{Table: TableNotifications, Op: stream.OpInsert})

	if got := len(agg.Feed()); got != 4 {
		t.Fatalf("feed length after stream event = %d, want 4", got)
	}

	store.mu.Lock()
	store.events = append(store.events, item("event-2", OriginEvent, 30, StatusUnread))
	store.mu.Unlock()

	broker.Publish(stream.Event{Table: TableNotifications, Op: stream.OpInsert})

	if got := len(agg.Feed()); got != 5 {
		t.Fatalf("feed length after second stream event = %d, want 5", got)
	}

	sub.Close()

	store.mu.Lock()
	store.events = append(store.events, item("event-3", OriginEvent, 40, StatusUnread))
	store.mu.Unlock()

	broker.Publish(stream.Event{Table: TableNotifications, Op: stream.OpInsert})

	if got := len(agg.Feed()); got != 5 {
		t.Fatalf("feed rebuilt after subscription close: length %d, want 5", got)
	}
}
