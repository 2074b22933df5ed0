package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admissions-ledger-api/internal/feeschedule"
	"github.com/noah-isme/admissions-ledger-api/internal/ledger"
	"github.com/noah-isme/admissions-ledger-api/internal/middleware"
	"github.com/noah-isme/admissions-ledger-api/internal/models"
	appErrors "github.com/noah-isme/admissions-ledger-api/pkg/errors"
)

func actorFromContext(c *gin.Context) (models.Actor, error) {
	claims, ok := middleware.Claims(c)
	if !ok {
		return models.Actor{}, appErrors.ErrUnauthorized
	}
	return claims.Actor(), nil
}

// parseAsOf reads the optional asOf query parameter. Both RFC 3339 instants
// and plain dates (midnight UTC) are accepted; absent means now.
func parseAsOf(c *gin.Context) (time.Time, error) {
	raw := strings.TrimSpace(c.Query("asOf"))
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "asOf must be RFC 3339 or YYYY-MM-DD")
}

func parsePositiveInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a positive integer")
	}
	return v, nil
}

func warningsMeta(warnings []feeschedule.Warning) map[string]interface{} {
	if len(warnings) == 0 {
		return nil
	}
	return map[string]interface{}{"warnings": warnings}
}

func outcomeMeta(outcome ledger.Outcome) map[string]interface{} {
	return map[string]interface{}{"already_resolved": outcome == ledger.OutcomeAlreadyResolved}
}
