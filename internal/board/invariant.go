package board

import (
	"fmt"
	"strings"
)

// checkInvariantsLocked verifies the tracking invariants after a mutation:
// at most one tracking card, a start time on every tracking card and no
// tracking in todo or done. A violation is a defect; it is logged, and in
// debug mode it panics.
func (b *Board) checkInvariantsLocked() {
	if err := b.verifyLocked(); err != nil {
		b.logger.Error("board invariant violated", "invariant", err.Invariant, "detail", err.Detail)
		if b.debug {
			panic(err)
		}
	}
}

func (b *Board) verifyLocked() *InvariantViolation {
	var tracking []string
	for _, col := range b.columns {
		for _, card := range col.Cards {
			if !card.IsTracking {
				if card.TrackingStartedAt != nil {
					return &InvariantViolation{Invariant: "tracking start", Detail: fmt.Sprintf("card %s has a start time but is not tracking", card.ID)}
				}
				continue
			}
			if card.TrackingStartedAt == nil {
				return &InvariantViolation{Invariant: "tracking start", Detail: fmt.Sprintf("card %s is tracking without a start time", card.ID)}
			}
			if !col.ID.Trackable() {
				return &InvariantViolation{Invariant: "trackable column", Detail: fmt.Sprintf("card %s is tracking in %s", card.ID, col.ID)}
			}
			tracking = append(tracking, card.ID)
		}
	}
	if len(tracking) > 1 {
		return &InvariantViolation{Invariant: "single tracker", Detail: "tracking cards: " + strings.Join(tracking, ", ")}
	}
	return nil
}

// Verify checks the board invariants and returns the first violation found.
func (b *Board) Verify() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v := b.verifyLocked(); v != nil {
		return v
	}
	return nil
}
