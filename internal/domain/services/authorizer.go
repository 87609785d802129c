package services

import (
	"document-review/internal/utils"
	"fmt"
	"strings"
)

// Reviewer is a configured reviewer identity bound to one approval slot.
type Reviewer struct {
	Slot  string
	Email string
	Name  string
}

// Roster is the fixed, ordered reviewer list loaded at start-up.
type Roster struct {
	reviewers []Reviewer
	slots     []string
}

func NewRoster(reviewers []Reviewer) (*Roster, error) {
	if len(reviewers) == 0 {
		return nil, fmt.Errorf("reviewer list is empty")
	}

	seenSlots := make(map[string]bool, len(reviewers))
	seenEmails := make(map[string]bool, len(reviewers))
	r := &Roster{}

	for _, rv := range reviewers {
		if rv.Slot == "" {
			return nil, fmt.Errorf("reviewer %q has no slot", rv.Email)
		}
		if err := utils.ValidateEmail(rv.Email); err != nil {
			return nil, fmt.Errorf("slot %s: %w", rv.Slot, err)
		}
		if seenSlots[rv.Slot] {
			return nil, fmt.Errorf("slot %s is bound twice", rv.Slot)
		}
		email := strings.ToLower(rv.Email)
		if seenEmails[email] {
			return nil, fmt.Errorf("reviewer %s is bound to more than one slot", rv.Email)
		}
		seenSlots[rv.Slot] = true
		seenEmails[email] = true

		if rv.Name == "" {
			rv.Name = rv.Email
		}
		r.reviewers = append(r.reviewers, rv)
		r.slots = append(r.slots, rv.Slot)
	}

	return r, nil
}

func (r *Roster) Reviewers() []Reviewer {
	out := make([]Reviewer, len(r.reviewers))
	copy(out, r.reviewers)
	return out
}

func (r *Roster) Slots() []string {
	out := make([]string, len(r.slots))
	copy(out, r.slots)
	return out
}

// Authorizer resolves the slot a reviewer identity may act on.
type Authorizer interface {
	SlotFor(identity string) (string, bool)
}

type MatchMode string

const (
	MatchExact           MatchMode = "exact"
	MatchCaseInsensitive MatchMode = "case_insensitive"
)

type staticAuthorizer struct {
	slots map[string]string
	mode  MatchMode
}

func NewStaticAuthorizer(roster *Roster, mode MatchMode) (Authorizer, error) {
	switch mode {
	case MatchExact, MatchCaseInsensitive:
	default:
		return nil, fmt.Errorf("unknown match mode %q", mode)
	}

	a := &staticAuthorizer{
		slots: make(map[string]string, len(roster.reviewers)),
		mode:  mode,
	}
	for _, rv := range roster.reviewers {
		a.slots[a.key(rv.Email)] = rv.Slot
	}
	return a, nil
}

func (a *staticAuthorizer) key(identity string) string {
	if a.mode == MatchCaseInsensitive {
		return strings.ToLower(identity)
	}
	return identity
}

func (a *staticAuthorizer) SlotFor(identity string) (string, bool) {
	if identity == "" {
		return "", false
	}
	slot, ok := a.slots[a.key(identity)]
	return slot, ok
}
