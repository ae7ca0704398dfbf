// Package datewindow decides which calendar dates and months of a mess are
// writable, given the mess subscription window and the current time.
//
// Everything here is a pure function of its arguments. Writers are expected
// to call Validate before persisting a dated record.
package datewindow

import (
	"errors"
	"time"

	"github.com/smallbiznis/messledger/internal/period"
)

var ErrInvalidDate = errors.New("invalid_date")

const (
	CodeMalformed     = "date_malformed"
	CodeInFuture      = "date_in_future"
	CodeOutsideWindow = "date_outside_window"
	CodeBeforeWindow  = "date_before_window"
)

const (
	ReasonNoSubscription = "no_subscription"
	ReasonExpired        = "subscription_expired"
	ReasonInactive       = "subscription_inactive"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Subscription is the purchased access period of a mess. EndDate is inclusive:
// the whole end day is still covered.
type Subscription struct {
	StartDate time.Time
	EndDate   time.Time
	Status    Status
}

// ExpiresAt is the first instant no longer covered by the subscription.
func (s Subscription) ExpiresAt() time.Time {
	return period.Day(s.EndDate).AddDate(0, 0, 1)
}

// Error carries a stable machine code for an invalid date.
type Error struct {
	Code string
	Date string
}

func (e *Error) Error() string {
	if e.Date == "" {
		return e.Code
	}
	return e.Code + ": " + e.Date
}

func (e *Error) Is(target error) bool {
	return target == ErrInvalidDate
}

// Result is the outcome of validating one candidate date.
type Result struct {
	Valid bool
	Code  string
	Err   error
}

func valid() Result {
	return Result{Valid: true}
}

func invalid(code, date string) Result {
	return Result{Code: code, Err: &Error{Code: code, Date: date}}
}

// Range is the inclusive span of writable dates. A zero Min means no floor.
type Range struct {
	Min      time.Time `json:"min_date,omitempty"`
	Max      time.Time `json:"max_date"`
	ReadOnly bool      `json:"read_only"`
	Reason   string    `json:"reason,omitempty"`
}

// WithFloor raises Min to floor, typically the mess creation date.
func (r Range) WithFloor(floor time.Time) Range {
	if floor.IsZero() {
		return r
	}
	floor = period.Day(floor)
	if r.Min.IsZero() || floor.After(r.Min) {
		r.Min = floor
	}
	return r
}

func (r Range) Contains(candidate time.Time) bool {
	return r.Check(candidate).Valid
}

// Check validates candidate against the range.
func (r Range) Check(candidate time.Time) Result {
	if candidate.IsZero() {
		return invalid(CodeMalformed, "")
	}
	day := period.Day(candidate)
	date := day.Format(period.DateLayout)
	if !r.Min.IsZero() && day.Before(r.Min) {
		return invalid(CodeBeforeWindow, date)
	}
	if day.After(r.Max) {
		if r.Reason == ReasonExpired || r.Reason == ReasonInactive {
			return invalid(CodeOutsideWindow, date)
		}
		return invalid(CodeInFuture, date)
	}
	return valid()
}

// ComputeEditableRange returns the writable date span at now.
//
// Without a subscription the mess is read-only and capped at today. With an
// expired or non-active subscription the cap is the subscription end date
// (never later than today). A subscription that has not started yet is not
// active. An active subscription allows anything up to today.
func ComputeEditableRange(sub *Subscription, now time.Time) Range {
	today := period.Day(now)
	if sub == nil {
		return Range{Max: today, ReadOnly: true, Reason: ReasonNoSubscription}
	}

	expired := !now.Before(sub.ExpiresAt())
	pending := !sub.StartDate.IsZero() && today.Before(period.Day(sub.StartDate))
	if sub.Status != StatusActive || expired || pending {
		max := period.Day(sub.EndDate)
		if max.After(today) {
			max = today
		}
		reason := ReasonInactive
		if expired || sub.Status == StatusExpired {
			reason = ReasonExpired
		}
		return Range{Max: max, ReadOnly: true, Reason: reason}
	}

	return Range{Max: today}
}

// Validate reports whether candidate may be written at now.
func Validate(candidate time.Time, sub *Subscription, now time.Time) Result {
	return ComputeEditableRange(sub, now).Check(candidate)
}

// ValidateString parses a YYYY-MM-DD date and validates it.
func ValidateString(raw string, sub *Subscription, now time.Time) Result {
	candidate, err := period.ParseDate(raw)
	if err != nil {
		return invalid(CodeMalformed, raw)
	}
	return Validate(candidate, sub, now)
}

// FilterToEditableMonths drops months that start after the writable range but
// always keeps the month containing now so history stays browsable. Order is
// preserved and duplicates are removed.
func FilterToEditableMonths(months []period.Month, sub *Subscription, now time.Time) []period.Month {
	r := ComputeEditableRange(sub, now)
	current := period.MonthOf(now)

	out := make([]period.Month, 0, len(months))
	seen := make(map[period.Month]struct{}, len(months))
	for _, m := range months {
		if _, ok := seen[m]; ok {
			continue
		}
		if m != current && m.Start().After(r.Max) {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// BrowsableMonths lists every month from `from` up to the later of the range
// cap and the current month, oldest first.
func BrowsableMonths(from period.Month, sub *Subscription, now time.Time) []period.Month {
	r := ComputeEditableRange(sub, now)
	last := period.MonthOf(r.Max)
	if current := period.MonthOf(now); current.After(last) {
		last = current
	}
	if from.IsZero() || from.After(last) {
		return []period.Month{last}
	}

	var out []period.Month
	for m := from; !m.After(last); m = m.Next() {
		out = append(out, m)
	}
	return out
}
