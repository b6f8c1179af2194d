package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentBypassed PaymentStatus = "BYPASSED"
	PaymentFailed   PaymentStatus = "FAILED"
)

type OrderStatus string

const (
	OrderDraft     OrderStatus = "DRAFT"
	OrderPriced    OrderStatus = "PRICED"
	OrderSubmitted OrderStatus = "SUBMITTED"
	OrderComplete  OrderStatus = "COMPLETE"
	OrderFailed    OrderStatus = "FAILED"
)

// WizardState is the persisted position of one order inside the creation
// flow. Transitions are owned by the orders package.
type WizardState string

const (
	WizardFormEntry   WizardState = "FORM_ENTRY"
	WizardPriceReview WizardState = "PRICE_REVIEW"
	WizardPayment     WizardState = "PAYMENT"
	WizardSubmission  WizardState = "SUBMISSION"
	WizardDone        WizardState = "DONE"
)

// Device is one lifepass selection on an order: the product being sold, the
// consumer category it is priced for, the insurance add-on flag and, once
// handed over at the desk, the physical lifepass code it was written to.
type Device struct {
	ProductID          string `json:"productId"`
	ConsumerCategoryID string `json:"consumerCategoryId"`
	Insurance          bool   `json:"insurance"`
	LifepassID         string `json:"lifepassId,omitempty"`
}

type Order struct {
	ID            string           `json:"id"`
	ResortID      string           `json:"resortId"`
	StartDate     string           `json:"startDate"`
	OrderDataHash string           `json:"-"`
	PaymentStatus PaymentStatus    `json:"paymentStatus"`
	OrderStatus   OrderStatus      `json:"orderStatus"`
	Legacy        bool             `json:"legacy"`
	TestOrder     bool             `json:"testOrder"`
	WizardState   WizardState      `json:"wizardState"`
	ClientName    string           `json:"clientName,omitempty"`
	ClientEmail   string           `json:"clientEmail,omitempty"`
	ClientPhone   string           `json:"clientPhone,omitempty"`
	SalesChannel  string           `json:"salesChannel,omitempty"`
	Devices       []Device         `json:"devices"`
	Price         *CalculatedPrice `json:"price,omitempty"`
	PaymentIntent string           `json:"paymentIntentId,omitempty"`
	PaymentBypass bool             `json:"paymentBypassed"`
	MythOrder     []byte           `json:"-"`
	SkidataOrder  []byte           `json:"-"`
	Version       int64            `json:"version"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Submitted reports whether the order already went out to the ticketing
// providers at least once.
func (o *Order) Submitted() bool {
	return len(o.MythOrder) > 0 || o.OrderStatus == OrderSubmitted || o.OrderStatus == OrderComplete
}

// Revenue is the gross total of the price snapshot, zero when unpriced.
func (o *Order) Revenue() decimal.Decimal {
	if o.Price == nil {
		return decimal.Zero
	}
	return o.Price.CumulativeGross
}
