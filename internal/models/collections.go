package models

import (
	"time"

	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

// CollectionMetrics is the portfolio roll-up of a set of engagements.
type CollectionMetrics struct {
	AsOf                         time.Time                 `json:"asOf"`
	Engagements                  int                       `json:"engagements"`
	TotalExpected                money.Amount              `json:"totalExpected"`
	TotalReceived                money.Amount              `json:"totalReceived"`
	Outstanding                  money.Amount              `json:"outstanding"`
	PendingVerifications         int                       `json:"pendingVerifications"`
	OverdueInstallments          int                       `json:"overdueInstallments"`
	TotalScholarship             money.Amount              `json:"totalScholarship"`
	AwardedEngagements           int                       `json:"awardedEngagements"`
	AverageScholarshipPercentage money.Percentage          `json:"averageScholarshipPercentage"`
	Breakdown                    []InstallmentBreakdown    `json:"breakdown"`
	Pipeline                     map[ApplicationStatus]int `json:"pipeline"`
	RevisedApplications          int                       `json:"revisedApplications"`
	Enrollment                   map[EngagementStatus]int  `json:"enrollment"`
}

// InstallmentBreakdown is one chart bucket keyed by semester and installment
// index. Semester 0 holds admission fees.
type InstallmentBreakdown struct {
	Kind     InstallmentKind `json:"kind"`
	Semester int             `json:"semester"`
	Sequence int             `json:"sequence"`
	Total    money.Amount    `json:"total"`
	Received money.Amount    `json:"received"`
	Paid     int             `json:"paid"`
	Count    int             `json:"count"`
}
