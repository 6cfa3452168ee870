// Package notify decides whether a classified failure warrants waking a
// human. The policy is pure over a history snapshot; persisting the
// outcome is the caller's job so the store can be swapped freely.
package notify

import (
	"context"
	"time"

	"github.com/deploywatch/deploywatch/internal/types"
)

// DefaultWindow is the suppression window applied when none is configured.
const DefaultWindow = time.Hour

// HistoryEntry is one fingerprint's notification history.
type HistoryEntry struct {
	Fingerprint  string
	Category     types.Category
	FirstSeen    time.Time
	LastSeen     time.Time
	LastNotified time.Time // zero when never notified
	SeenCount    int
}

// HistoryStore persists per-fingerprint notification history. Lookup
// returns (nil, nil) for an unseen fingerprint.
type HistoryStore interface {
	Lookup(ctx context.Context, fingerprint string) (*HistoryEntry, error)
	RecordSeen(ctx context.Context, sig *types.ErrorSignature, at time.Time) error
	RecordNotified(ctx context.Context, fingerprint string, at time.Time) error
	CountNotifiedSince(ctx context.Context, since time.Time) (int, error)
	Close() error
}

// Policy applies the suppression rules to one signature at a time.
type Policy struct {
	store HistoryStore

	// Window is the suppression window for repeats of a fingerprint.
	Window time.Duration

	// MaxPerWindow caps total notifications inside one window across all
	// fingerprints. Zero means no cap.
	MaxPerWindow int
}

// NewPolicy creates a policy over the given store.
func NewPolicy(store HistoryStore, window time.Duration) *Policy {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Policy{store: store, Window: window}
}

// Decide evaluates the suppression rules for sig at time now. Rules apply
// in order: an unseen fingerprint always notifies; a repeat whose category
// severity rose since the last notification notifies; a repeat inside the
// window is suppressed; a repeat past the window notifies again. The
// decision does not mutate history.
//
// Engine-built fingerprints hash the category in, so a reclassified error
// arrives as a new fingerprint rather than an escalation; the escalation
// rule fires for collaborators that record one fingerprint under changing
// categories.
func (p *Policy) Decide(ctx context.Context, sig *types.ErrorSignature, now time.Time) (*types.NotificationDecision, error) {
	entry, err := p.store.Lookup(ctx, sig.Fingerprint)
	if err != nil {
		return nil, err
	}

	if entry == nil || entry.LastNotified.IsZero() {
		return p.capped(ctx, now, &types.NotificationDecision{
			ShouldNotify: true,
			Reason:       types.ReasonNewFingerprint,
			Fingerprint:  sig.Fingerprint,
		})
	}

	if sig.Category.Severity() > entry.Category.Severity() {
		return p.capped(ctx, now, &types.NotificationDecision{
			ShouldNotify: true,
			Reason:       types.ReasonSeverityEscalated,
			Fingerprint:  sig.Fingerprint,
		})
	}

	if now.Sub(entry.LastNotified) < p.Window {
		return &types.NotificationDecision{
			ShouldNotify: false,
			Reason:       types.ReasonRepeatWithinWindow,
			Fingerprint:  sig.Fingerprint,
		}, nil
	}

	return p.capped(ctx, now, &types.NotificationDecision{
		ShouldNotify: true,
		Reason:       types.ReasonWindowExpired,
		Fingerprint:  sig.Fingerprint,
	})
}

// Record persists the outcome of a decision: the signature is always
// marked seen, and the notified time advances only when the decision said
// to notify.
func (p *Policy) Record(ctx context.Context, sig *types.ErrorSignature, decision *types.NotificationDecision, now time.Time) error {
	if err := p.store.RecordSeen(ctx, sig, now); err != nil {
		return err
	}
	if decision != nil && decision.ShouldNotify {
		if err := p.store.RecordNotified(ctx, sig.Fingerprint, now); err != nil {
			return err
		}
	}
	return nil
}

// capped downgrades a would-notify decision when the global cap for the
// current window is already spent.
func (p *Policy) capped(ctx context.Context, now time.Time, d *types.NotificationDecision) (*types.NotificationDecision, error) {
	if p.MaxPerWindow <= 0 {
		return d, nil
	}
	n, err := p.store.CountNotifiedSince(ctx, now.Add(-p.Window))
	if err != nil {
		return nil, err
	}
	if n >= p.MaxPerWindow {
		d.ShouldNotify = false
		d.Reason = types.ReasonRateLimited
	}
	return d, nil
}
