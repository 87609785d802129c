package entities

import (
	"errors"
	"slices"
	"time"
)

// ReviewState is computed from a Document on every read; it is never stored
// as a whole.
type ReviewState struct {
	Slots         []Slot     `json:"slots"`
	FullyApproved bool       `json:"fully_approved"`
	Rejected      bool       `json:"rejected"`
	Rejection     *Rejection `json:"rejection,omitempty"`
}

type Slot struct {
	Name       string     `json:"name"`
	Approved   bool       `json:"approved"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

func (s ReviewState) Slot(name string) (Slot, bool) {
	for _, slot := range s.Slots {
		if slot.Name == name {
			return slot, true
		}
	}
	return Slot{}, false
}

var (
	ErrStatusNotAllowed = errors.New("document status does not allow this change")
	ErrAlreadyApproved  = errors.New("document is already fully approved")
	ErrContentChanged   = errors.New("document content was replaced concurrently")
)

// Guard is a precondition checked by the store against the current document,
// atomically with applying the patch.
type Guard struct {
	AllowedStatuses []DocumentStatus
	// PendingSlots, when set, requires at least one of these slots to be
	// unapproved.
	PendingSlots []string
	// ContentKey, when set, must equal the document's current content key.
	ContentKey string
}

func (g Guard) Check(doc *Document) error {
	if len(g.AllowedStatuses) > 0 && !slices.Contains(g.AllowedStatuses, doc.Status) {
		return ErrStatusNotAllowed
	}
	if len(g.PendingSlots) > 0 && doc.FullyApproved(g.PendingSlots) {
		return ErrAlreadyApproved
	}
	if g.ContentKey != "" && g.ContentKey != doc.ContentKey {
		return ErrContentChanged
	}
	return nil
}

type ContentChange struct {
	Key       string
	MediaType string
	Size      int64
}

type SlotApproval struct {
	Slot     string
	Reviewer string
}

// DocumentPatch describes a partial update. Nil fields are left untouched;
// ApproveSlot merges a single slot and never clears other slots.
type DocumentPatch struct {
	Guard       Guard
	Translated  *bool
	Status      *DocumentStatus
	Content     *ContentChange
	ApproveSlot *SlotApproval
	Rejection   *Rejection
	SubmittedAt *time.Time
}

// Apply mutates doc in place. The caller is expected to have checked the
// guard on the same copy.
func (p *DocumentPatch) Apply(doc *Document, now time.Time) {
	if p.Translated != nil {
		doc.Translated = *p.Translated
	}
	if p.Status != nil {
		doc.Status = *p.Status
	}
	if p.Content != nil {
		if p.Content.Key != "" {
			doc.ContentKey = p.Content.Key
		}
		doc.MediaType = p.Content.MediaType
		doc.Size = p.Content.Size
	}
	if p.ApproveSlot != nil {
		if doc.Approvals == nil {
			doc.Approvals = make(map[string]Approval)
		}
		if _, ok := doc.Approvals[p.ApproveSlot.Slot]; !ok {
			doc.Approvals[p.ApproveSlot.Slot] = Approval{
				Reviewer:   p.ApproveSlot.Reviewer,
				ApprovedAt: now,
			}
		}
	}
	if p.Rejection != nil {
		r := *p.Rejection
		doc.Rejection = &r
	}
	if p.SubmittedAt != nil {
		t := *p.SubmittedAt
		doc.SubmittedAt = &t
	}
	doc.UpdatedAt = now
}
