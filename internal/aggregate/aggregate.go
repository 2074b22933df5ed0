// Package aggregate folds a snapshot of engagements into collection metrics.
// The fold reads only its arguments, so the same snapshot and instant always
// produce the same metrics.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/admissions-ledger-api/internal/ledger"
	"github.com/noah-isme/admissions-ledger-api/internal/lifecycle"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	"github.com/noah-isme/admissions-ledger-api/pkg/money"
)

type bucketKey struct {
	semester int
	sequence int
	kind     models.InstallmentKind
}

// Aggregate rolls up the engagements at now. Dropped engagements only
// contribute to the enrollment counts.
func Aggregate(engagements []models.Engagement, now time.Time) models.CollectionMetrics {
	metrics := models.CollectionMetrics{
		AsOf:                         now.UTC(),
		AverageScholarshipPercentage: money.PercentageFromInt(0),
		Breakdown:                    []models.InstallmentBreakdown{},
		Pipeline:                     map[models.ApplicationStatus]int{},
		Enrollment:                   map[models.EngagementStatus]int{},
	}

	buckets := map[bucketKey]*models.InstallmentBreakdown{}
	percentSum := decimal.Zero
	for _, e := range engagements {
		metrics.Enrollment[e.Status]++
		if e.Status == models.EngagementStatusDropped {
			continue
		}
		metrics.Engagements++
		metrics.Pipeline[lifecycle.EffectiveStatus(e, now)]++
		if e.Application.Revised() {
			metrics.RevisedApplications++
		}
		if e.Award != nil {
			metrics.AwardedEngagements++
			percentSum = percentSum.Add(e.Award.Percentage.Decimal)
		}

		for _, line := range e.Schedule.Lines() {
			status := line.VerificationStatus()
			key := bucketKey{semester: line.Semester, sequence: line.Sequence, kind: line.Kind}
			bucket, ok := buckets[key]
			if !ok {
				bucket = &models.InstallmentBreakdown{Kind: line.Kind, Semester: line.Semester, Sequence: line.Sequence}
				buckets[key] = bucket
			}
			bucket.Count++
			bucket.Total += line.AmountPayable

			metrics.TotalExpected += line.AmountPayable
			metrics.TotalScholarship += line.ScholarshipAmount
			switch status {
			case models.VerificationPaid:
				metrics.TotalReceived += line.AmountPayable
				bucket.Received += line.AmountPayable
				bucket.Paid++
			case models.VerificationAwaitingReview:
				metrics.PendingVerifications++
			}
			if ledger.IsOverdue(*line, now) {
				metrics.OverdueInstallments++
			}
		}
	}
	metrics.Outstanding = metrics.TotalExpected - metrics.TotalReceived

	if metrics.AwardedEngagements > 0 {
		avg := percentSum.Div(decimal.NewFromInt(int64(metrics.AwardedEngagements))).Round(2)
		metrics.AverageScholarshipPercentage = money.Percentage{Decimal: avg}
	}

	for _, bucket := range buckets {
		metrics.Breakdown = append(metrics.Breakdown, *bucket)
	}
	sort.Slice(metrics.Breakdown, func(i, j int) bool {
		a, b := metrics.Breakdown[i], metrics.Breakdown[j]
		if a.Semester != b.Semester {
			return a.Semester < b.Semester
		}
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		return a.Kind < b.Kind
	})
	return metrics
}
