package notify

import (
	"context"
	"log"
)

// Gateway is the only write path into the feed's read state. Every
// mutation is a single idempotent store write; on success the aggregator
// is asked to rebuild, on failure the feed keeps its last known-good
// value and the error goes back to the caller.
type Gateway struct {
	store Store
	agg   *Aggregator
}

func NewGateway(store Store, agg *Aggregator) *Gateway {
	return &Gateway{store: store, agg: agg}
}

// MarkRead flips one notification to read. Synthetic announcement IDs
// succeed immediately without touching the store: broadcasts are not
// individually dismissible.
func (g *Gateway) MarkRead(ctx context.Context, id string) error {
	if IsAnnouncementID(id) {
		return nil
	}

	if err := g.store.MarkRead(ctx, id); err != nil {
		return err
	}

	g.rebuild(ctx)
	return nil
}

// MarkAllRead batches a read update over every non-broadcast unread item
// in the current feed. The rebuild runs even when the set is empty, so
// repeated calls are harmless.
func (g *Gateway) MarkAllRead(ctx context.Context) error {
	ids := g.agg.unreadIDs()

	if len(ids) > 0 {
		if err := g.store.MarkAllRead(ctx, ids); err != nil {
			return err
		}
	}

	g.rebuild(ctx)
	return nil
}

// Send inserts one unread notification addressed to recipientID.
func (g *Gateway) Send(ctx context.Context, recipientID uint, kind, title, message string, payload map[string]any) (Item, error) {
	item, err := g.store.Insert(ctx, recipientID, kind, title, message, payload)
	if err != nil {
		return Item{}, err
	}

	g.rebuild(ctx)
	return item, nil
}

// rebuild refreshes the feed after a successful write. A read failure
// here is fail-soft: the mutation itself landed, the stale feed heals on
// the next trigger.
func (g *Gateway) rebuild(ctx context.Context) {
	if err := g.agg.Rebuild(ctx); err != nil {
		log.Printf("Feed rebuild after mutation failed: %v", err)
	}
}
