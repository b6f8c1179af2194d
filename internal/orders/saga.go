package orders

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/mtech-resorts/cashdesk/internal/apierr"
	"github.com/mtech-resorts/cashdesk/models"
)

// Event is one thing that happened to an order inside the creation flow.
type Event string

const (
	EventPriceCalculated  Event = "PRICE_CALCULATED"
	EventPaymentStarted   Event = "PAYMENT_STARTED"
	EventPaymentSucceeded Event = "PAYMENT_SUCCEEDED"
	EventPaymentFailed    Event = "PAYMENT_FAILED"
	EventPaymentBypassed  Event = "PAYMENT_BYPASSED"
	EventSubmitted        Event = "SUBMITTED"
)

// transitions is the whole wizard: states are rows, events are guarded
// moves. Anything absent is an invalid transition.
var transitions = map[models.WizardState]map[Event]models.WizardState{
	models.WizardFormEntry: {
		EventPriceCalculated: models.WizardPriceReview,
	},
	models.WizardPriceReview: {
		EventPriceCalculated: models.WizardPriceReview,
		EventPaymentStarted:  models.WizardPayment,
		EventPaymentBypassed: models.WizardSubmission,
	},
	models.WizardPayment: {
		EventPaymentStarted:   models.WizardPayment,
		EventPaymentSucceeded: models.WizardSubmission,
		EventPaymentFailed:    models.WizardPayment,
		EventPaymentBypassed:  models.WizardSubmission,
	},
	models.WizardSubmission: {
		EventSubmitted: models.WizardDone,
	},
	models.WizardDone: {
		// Resubmission after device edits re-runs provisioning but the
		// wizard stays done.
		EventSubmitted: models.WizardDone,
	},
}

// Next applies an event to a wizard state.
func Next(state models.WizardState, event Event) (models.WizardState, error) {
	if next, ok := transitions[state][event]; ok {
		return next, nil
	}
	return state, apierr.Conflict(fmt.Sprintf("event %s not allowed in state %s", event, state))
}

// OrderDataHash derives the idempotency key for intent creation from the
// logical order content. Selections are sorted so that ordering in the
// request body does not change the key.
func OrderDataHash(resortID, startDate string, devices []models.Device) string {
	parts := make([]string, 0, len(devices)+2)
	for _, d := range devices {
		parts = append(parts, fmt.Sprintf("%s:%s:%t", d.ProductID, d.ConsumerCategoryID, d.Insurance))
	}
	sort.Strings(parts)
	payload := resortID + "|" + startDate + "|" + strings.Join(parts, ",")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// DevicesChanged reports whether a submitted device set differs from the
// original, which is what forces resubmit on the next submission.
func DevicesChanged(original, current []models.Device) bool {
	if len(original) != len(current) {
		return true
	}
	for i := range original {
		if original[i].ProductID != current[i].ProductID ||
			original[i].ConsumerCategoryID != current[i].ConsumerCategoryID ||
			original[i].Insurance != current[i].Insurance ||
			original[i].LifepassID != current[i].LifepassID {
			return true
		}
	}
	return false
}
