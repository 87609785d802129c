package entities

import (
	"time"
)

type DocumentStatus string

const (
	StatusUploaded    DocumentStatus = "uploaded"
	StatusTranslated  DocumentStatus = "translated"
	StatusUnderReview DocumentStatus = "under_review"
	StatusRejected    DocumentStatus = "rejected"

	// StatusApproved is never stored. It is reported by Document.State once
	// every slot of a document under review is approved.
	StatusApproved DocumentStatus = "approved"
)

type Document struct {
	ID             string              `json:"id" db:"id"`
	Name           string              `json:"name" db:"name"`
	SourceLanguage string              `json:"source_language" db:"source_language"`
	TargetLanguage string              `json:"target_language" db:"target_language"`
	Translated     bool                `json:"translated" db:"translated"`
	Status         DocumentStatus      `json:"status" db:"status"`
	MediaType      string              `json:"media_type" db:"media_type"`
	Size           int64               `json:"size" db:"size"`
	ContentKey     string              `json:"-" db:"content_key"`
	SubmittedAt    *time.Time          `json:"submitted_at,omitempty" db:"submitted_at"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"`
	Approvals      map[string]Approval `json:"-" db:"-"`
	Rejection      *Rejection          `json:"rejection,omitempty" db:"-"`
}

// Approval records a single slot's approve bit. A slot without an entry is
// not approved.
type Approval struct {
	Reviewer   string    `json:"reviewer"`
	ApprovedAt time.Time `json:"approved_at"`
}

type Rejection struct {
	Reviewer   string    `json:"reviewer"`
	Slot       string    `json:"slot"`
	Comments   string    `json:"comments"`
	RejectedAt time.Time `json:"rejected_at"`
}

// DocumentSummary is the list view of a document. It carries no content.
type DocumentSummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	SourceLanguage string          `json:"source_language"`
	TargetLanguage string          `json:"target_language"`
	Translated     bool            `json:"translated"`
	Status         DocumentStatus  `json:"status"`
	Approvals      map[string]bool `json:"approvals"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (d *Document) IsApproved(slot string) bool {
	_, ok := d.Approvals[slot]
	return ok
}

// FullyApproved reports whether every one of slots is approved. An empty slot
// list is never fully approved.
func (d *Document) FullyApproved(slots []string) bool {
	if len(slots) == 0 {
		return false
	}
	for _, slot := range slots {
		if !d.IsApproved(slot) {
			return false
		}
	}
	return true
}

// State returns the lifecycle state, deriving approved from the slot bits.
func (d *Document) State(slots []string) DocumentStatus {
	if d.Status == StatusUnderReview && d.FullyApproved(slots) {
		return StatusApproved
	}
	return d.Status
}

func (d *Document) Review(slots []string) ReviewState {
	state := ReviewState{
		Slots:         make([]Slot, 0, len(slots)),
		FullyApproved: d.FullyApproved(slots),
		Rejected:      d.Status == StatusRejected,
		Rejection:     d.Rejection,
	}
	for _, name := range slots {
		slot := Slot{Name: name}
		if a, ok := d.Approvals[name]; ok {
			approvedAt := a.ApprovedAt
			slot.Approved = true
			slot.ApprovedAt = &approvedAt
		}
		state.Slots = append(state.Slots, slot)
	}
	return state
}

func (d *Document) Summary(slots []string) DocumentSummary {
	approvals := make(map[string]bool, len(slots))
	for _, slot := range slots {
		approvals[slot] = d.IsApproved(slot)
	}
	return DocumentSummary{
		ID:             d.ID,
		Name:           d.Name,
		SourceLanguage: d.SourceLanguage,
		TargetLanguage: d.TargetLanguage,
		Translated:     d.Translated,
		Status:         d.State(slots),
		Approvals:      approvals,
		CreatedAt:      d.CreatedAt,
	}
}

// Clone returns a deep copy so stores never share maps with callers.
func (d *Document) Clone() *Document {
	c := *d
	if d.SubmittedAt != nil {
		t := *d.SubmittedAt
		c.SubmittedAt = &t
	}
	if d.Rejection != nil {
		r := *d.Rejection
		c.Rejection = &r
	}
	c.Approvals = make(map[string]Approval, len(d.Approvals))
	for k, v := range d.Approvals {
		c.Approvals[k] = v
	}
	return &c
}
