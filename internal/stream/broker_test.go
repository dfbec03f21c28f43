package stream

import "testing"

func TestSubscribeReceivesMatchingEvents(t *testing.T) {
	broker := NewBroker()

	var got []Event
	sub := broker.Subscribe([]string{"notifications"}, []Op{OpInsert, OpUpdate}, func(e Event) {
		got = append(got, e)
	})
	defer sub.Close()

	broker.Publish(Event{Table: "notifications", Op: OpInsert})
	broker.Publish(Event{Table: "notifications", Op: OpUpdate})

	if len(got) != 2 {
		t.Fatalf("events received = %d, want 2", len(got))
	}
	if got[0].Op != OpInsert || got[1].Op != OpUpdate {
		t.Errorf("events = %v", got)
	}
}

func TestUnmatchedEventsFiltered(t *testing.T) {
	broker := NewBroker()

	calls := 0
	sub := broker.Subscribe([]string{"announcements"}, []Op{OpInsert}, func(Event) {
		calls++
	})
	defer sub.Close()

	broker.Publish(Event{Table: "notifications", Op: OpInsert})
	broker.Publish(Event{Table: "announcements", Op: OpUpdate})

	if calls != 0 {
		t.Errorf("handler invoked %d times for unmatched events", calls)
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	broker := NewBroker()

	calls := 0
	sub := broker.Subscribe([]string{"notifications"}, []Op{OpInsert}, func(Event) {
		calls++
	})

	broker.Publish(Event{Table: "notifications", Op: OpInsert})
	sub.Close()
	broker.Publish(Event{Table: "notifications", Op: OpInsert})

	if calls != 1 {
		t.Errorf("handler invoked %d times, want 1", calls)
	}

	// Closing again is harmless.
	sub.Close()
}

func TestMultipleSubscribers(t *testing.T) {
	broker := NewBroker()

	first, second := 0, 0
	subA := broker.Subscribe([]string{"notifications"}, []Op{OpInsert}, func(Event) { first++ })
	defer subA.Close()
	subB := broker.Subscribe([]string{"notifications", "announcements"}, []Op{OpInsert}, func(Event) { second++ })
	defer subB.Close()

	broker.Publish(Event{Table: "notifications", Op: OpInsert})
	broker.Publish(Event{Table: "announcements", Op: OpInsert})

	if first != 1 {
		t.Errorf("first subscriber calls = %d, want 1", first)
	}
	if second != 2 {
		t.Errorf("second subscriber calls = %d, want 2", second)
	}
}
