package shifts

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// CurrentShift is the sentinel criteria value asking for the shift in progress
const CurrentShift = "current"

// Definition describes a recurring shift window
type Definition struct {
	Name string

	// RRule gives the start of each occurrence, e.g. "FREQ=DAILY;BYHOUR=7;BYMINUTE=0;BYSECOND=0"
	RRule string

	Duration time.Duration
}

type shift struct {
	name     string
	rule     *rrule.RRule
	duration time.Duration
}

// Resolver finds which configured shift covers a given instant
type Resolver struct {
	shifts []shift
	anchor time.Time
}

// NewResolver parses the shift definitions. Occurrences are generated from anchor,
// which should lie before any instant that will be resolved.
func NewResolver(definitions []Definition, anchor time.Time) (*Resolver, error) {
	resolver := &Resolver{anchor: anchor}
	for i, def := range definitions {
		rule, err := rrule.StrToRRule(def.RRule)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rrule for shift %d (%s): %w", i, def.Name, err)
		}
		if def.Duration <= 0 {
			return nil, fmt.Errorf("shift %s must have a positive duration", def.Name)
		}
		rule.DTStart(anchor)
		resolver.shifts = append(resolver.shifts, shift{
			name:     def.Name,
			rule:     rule,
			duration: def.Duration,
		})
	}
	return resolver, nil
}

// Current returns the name of the first configured shift whose latest occurrence has
// started at or before now and not yet ended. It returns "" when no shift is running.
func (r *Resolver) Current(now time.Time) string {
	for _, s := range r.shifts {
		start := s.rule.Before(now, true)
		if start.IsZero() {
			continue
		}
		if now.Before(start.Add(s.duration)) {
			return s.name
		}
	}
	return ""
}

// Resolve maps a criteria shift value to a concrete shift name.
// The sentinel CurrentShift is resolved against now; any other value is returned as is.
func (r *Resolver) Resolve(value string, now time.Time) string {
	if value != CurrentShift {
		return value
	}
	return r.Current(now)
}
