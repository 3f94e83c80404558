package scheduler

import (
	"time"

	"activitywarden/internal/model"
)

// ActionKind is the outcome of classifying a FocusChange event against
// the current timer set.
type ActionKind int

const (
	// ActionIgnore means no timer governs this target.
	ActionIgnore ActionKind = iota
	// ActionBlock means the target must be closed immediately.
	ActionBlock
	// ActionTime means the target is allowed for Remaining more seconds
	// today.
	ActionTime
)

// BlockReason explains why classify returned ActionBlock, used only for
// logging.
type BlockReason int

const (
	blockReasonNone BlockReason = iota
	blockReasonDisallowedDay
	blockReasonZeroLimit
	blockReasonExhausted
)

// Action is the result of classifying a focus-change event.
type Action struct {
	Kind      ActionKind
	Remaining uint32
	Reason    BlockReason
}

// classify decides what to do with a focus change: timers are scanned in
// order and the first whose DisplayName matches wins. Matching is by
// display name alone; the host identifies whose duration bucket the
// accumulated time was read from, not which timers apply.
//
// time.Weekday numbers Sunday=0..Saturday=6, the same convention
// AllowedDays uses, so the index needs no shift.
func classify(timers []model.Timer, accumulated uint32, host model.Host, displayName string) Action {
	for _, t := range timers {
		if t.DisplayName != displayName {
			continue
		}

		weekday := int(time.Now().In(time.Local).Weekday())
		if !t.AllowedDays[weekday] {
			return Action{Kind: ActionBlock, Reason: blockReasonDisallowedDay}
		}
		if t.TimeLimit == 0 {
			return Action{Kind: ActionBlock, Reason: blockReasonZeroLimit}
		}
		if accumulated >= t.TimeLimit {
			return Action{Kind: ActionBlock, Reason: blockReasonExhausted}
		}
		return Action{Kind: ActionTime, Remaining: t.TimeLimit - accumulated}
	}
	return Action{Kind: ActionIgnore}
}
