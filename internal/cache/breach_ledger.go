package cache

import (
	"context"
	"fmt"
	"time"
)

// breachMarkerTTL outlives the longest resolution target by a wide margin.
const breachMarkerTTL = 30 * 24 * time.Hour

// BreachLedger remembers which ticket metrics were already reported as breached.
type BreachLedger struct {
	store Store
}

func NewBreachLedger(store Store) *BreachLedger {
	return &BreachLedger{store: store}
}

// MarkBreached records the breach and reports whether it is new.
func (l *BreachLedger) MarkBreached(ctx context.Context, ticketID int64, metric string) (bool, error) {
	return l.store.SetNX(ctx, fmt.Sprintf("sla:breach:%d:%s", ticketID, metric), breachMarkerTTL)
}
