package models

import (
	"time"

	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

// FeePlan selects how a cohort collects its programme fee.
type FeePlan string

// Fee plans.
const (
	FeePlanOneShot      FeePlan = "one_shot"
	FeePlanInstallments FeePlan = "installments"
)

// ScholarshipSlab is a named waiver tier configured on a cohort.
type ScholarshipSlab struct {
	ID                 string           `db:"id" json:"id"`
	CohortID           string           `db:"cohort_id" json:"cohortId"`
	Name               string           `db:"name" json:"name"`
	Percentage         money.Percentage `db:"percentage" json:"percentage"`
	ClearanceThreshold int              `db:"clearance_threshold" json:"clearanceThreshold"`
}

// ScholarshipAward is the slab granted to one engagement. It snapshots the
// slab so later slab edits do not rewrite history.
type ScholarshipAward struct {
	SlabID             string           `db:"slab_id" json:"slabId"`
	SlabName           string           `db:"slab_name" json:"slabName"`
	Percentage         money.Percentage `db:"percentage" json:"percentage"`
	ClearanceThreshold int              `db:"clearance_threshold" json:"clearanceThreshold"`
	AwardedBy          string           `db:"awarded_by" json:"awardedBy"`
	AwardedAt          time.Time        `db:"awarded_at" json:"awardedAt"`
}

// AwardFromSlab snapshots a slab into an award.
func AwardFromSlab(slab ScholarshipSlab, awardedBy string, at time.Time) ScholarshipAward {
	return ScholarshipAward{
		SlabID:             slab.ID,
		SlabName:           slab.Name,
		Percentage:         slab.Percentage,
		ClearanceThreshold: slab.ClearanceThreshold,
		AwardedBy:          awardedBy,
		AwardedAt:          at,
	}
}

// InstallmentConfig is one configured installment of a semester.
type InstallmentConfig struct {
	Sequence int          `json:"sequence"`
	BaseFee  money.Amount `json:"baseFee"`
	DueDate  time.Time    `json:"dueDate"`
}

// SemesterConfig groups the installments of one semester.
type SemesterConfig struct {
	Number       int                 `json:"number"`
	Installments []InstallmentConfig `json:"installments"`
}

// OneShotConfig describes a single full-programme payment.
type OneShotConfig struct {
	BaseFee  money.Amount `json:"baseFee"`
	Discount money.Amount `json:"discount"`
	DueDate  time.Time    `json:"dueDate"`
}

// FeeConfig is the fee structure configured on a cohort.
type FeeConfig struct {
	CohortID            string            `json:"cohortId"`
	Currency            string            `json:"currency"`
	Plan                FeePlan           `json:"plan"`
	AdmissionFee        money.Amount      `json:"admissionFee"`
	AdmissionFeeDueDate time.Time         `json:"admissionFeeDueDate"`
	OneShot             *OneShotConfig    `json:"oneShot,omitempty"`
	Semesters           []SemesterConfig  `json:"semesters,omitempty"`
	Slabs               []ScholarshipSlab `json:"slabs"`
}

// Slab looks up a configured slab by ID.
func (c FeeConfig) Slab(id string) (ScholarshipSlab, bool) {
	for _, s := range c.Slabs {
		if s.ID == id {
			return s, true
		}
	}
	return ScholarshipSlab{}, false
}

// InstallmentKind distinguishes the lines of a fee schedule.
type InstallmentKind string

// Installment kinds.
const (
	InstallmentKindAdmission   InstallmentKind = "admission"
	InstallmentKindOneShot     InstallmentKind = "one_shot"
	InstallmentKindInstallment InstallmentKind = "installment"
)

// VerificationStatus is the derived state of an installment's receipt history.
type VerificationStatus string

// Verification statuses.
const (
	VerificationPending        VerificationStatus = "pending"
	VerificationAwaitingReview VerificationStatus = "verification pending"
	VerificationPaid           VerificationStatus = "paid"
	VerificationFlagged        VerificationStatus = "flagged"
)

// ReceiptDecision is a fee collector's verdict on a receipt.
type ReceiptDecision string

// Receipt decisions.
const (
	DecisionPaid    ReceiptDecision = "paid"
	DecisionFlagged ReceiptDecision = "flagged"
)

// Receipt is one append-only entry in an installment's receipt history. The
// decision fields are written once.
type Receipt struct {
	ID            string          `db:"id" json:"id"`
	InstallmentID string          `db:"installment_id" json:"installmentId"`
	FileURL       string          `db:"file_url" json:"fileUrl"`
	UploadedAt    time.Time       `db:"uploaded_at" json:"uploadedAt"`
	UploadedBy    string          `db:"uploaded_by" json:"uploadedBy"`
	Decision      ReceiptDecision `db:"decision" json:"decision,omitempty"`
	Comment       string          `db:"comment" json:"comment,omitempty"`
	DecidedAt     *time.Time      `db:"decided_at" json:"decidedAt,omitempty"`
	DecidedBy     string          `db:"decided_by" json:"decidedBy,omitempty"`
}

// Decided reports whether the receipt carries a decision.
func (r Receipt) Decided() bool {
	return r.Decision != ""
}

// Installment is one line of a fee schedule.
type Installment struct {
	ID                    string           `db:"id" json:"id"`
	EngagementID          string           `db:"engagement_id" json:"engagementId"`
	Kind                  InstallmentKind  `db:"kind" json:"kind"`
	Semester              int              `db:"semester" json:"semester"`
	Sequence              int              `db:"sequence" json:"sequence"`
	DueDate               time.Time        `db:"due_date" json:"dueDate"`
	BaseFee               money.Amount     `db:"base_fee" json:"baseFee"`
	ScholarshipPercentage money.Percentage `db:"scholarship_percentage" json:"scholarshipPercentage"`
	ScholarshipAmount     money.Amount     `db:"scholarship_amount" json:"scholarshipAmount"`
	Discount              money.Amount     `db:"discount" json:"discount"`
	AmountPayable         money.Amount     `db:"amount_payable" json:"amountPayable"`
	FrozenAt              *time.Time       `db:"frozen_at" json:"frozenAt,omitempty"`
	Receipts              []Receipt        `db:"-" json:"receipts"`
}

// LatestReceipt returns the most recent receipt entry, if any.
func (i *Installment) LatestReceipt() *Receipt {
	if i == nil || len(i.Receipts) == 0 {
		return nil
	}
	return &i.Receipts[len(i.Receipts)-1]
}

// VerificationStatus derives the status from the latest receipt entry.
func (i *Installment) VerificationStatus() VerificationStatus {
	latest := i.LatestReceipt()
	if latest == nil {
		return VerificationPending
	}
	switch latest.Decision {
	case DecisionPaid:
		return VerificationPaid
	case DecisionFlagged:
		return VerificationFlagged
	default:
		return VerificationAwaitingReview
	}
}

// FeeSchedule is the materialised payment plan of an engagement.
type FeeSchedule struct {
	Plan         FeePlan       `json:"plan"`
	Currency     string        `json:"currency"`
	AdmissionFee *Installment  `json:"admissionFee,omitempty"`
	Installments []Installment `json:"installments"`
}

// Lines returns every schedule line, admission fee first.
func (s *FeeSchedule) Lines() []*Installment {
	if s == nil {
		return nil
	}
	lines := make([]*Installment, 0, len(s.Installments)+1)
	if s.AdmissionFee != nil {
		lines = append(lines, s.AdmissionFee)
	}
	for i := range s.Installments {
		lines = append(lines, &s.Installments[i])
	}
	return lines
}

// Find returns the line with the given ID.
func (s *FeeSchedule) Find(id string) (*Installment, bool) {
	for _, line := range s.Lines() {
		if line.ID == id {
			return line, true
		}
	}
	return nil, false
}

// TotalExpected is the admission fee plus every installment's payable amount.
func (s *FeeSchedule) TotalExpected() money.Amount {
	var total money.Amount
	for _, line := range s.Lines() {
		total += line.AmountPayable
	}
	return total
}

// Clone returns a deep copy of the schedule including receipt histories.
func (s *FeeSchedule) Clone() *FeeSchedule {
	if s == nil {
		return nil
	}
	out := *s
	if s.AdmissionFee != nil {
		fee := s.AdmissionFee.clone()
		out.AdmissionFee = &fee
	}
	out.Installments = make([]Installment, len(s.Installments))
	for i, line := range s.Installments {
		out.Installments[i] = line.clone()
	}
	return &out
}

func (i Installment) clone() Installment {
	i.Receipts = append([]Receipt(nil), i.Receipts...)
	return i
}
