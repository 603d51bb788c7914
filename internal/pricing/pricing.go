// Package pricing computes the itemized payment components of a cart or
// order: tax, shipping, discount and payment-method fee. Everything here is
// pure; callers persist the results themselves.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ComponentType identifies one contributor to the final total.
type ComponentType string

const (
	ComponentTax      ComponentType = "TAX"
	ComponentShipping ComponentType = "SHIPPING"
	ComponentDiscount ComponentType = "DISCOUNT"
	ComponentFee      ComponentType = "FEE"
)

// Component is one itemized line in the payment breakdown.
type Component struct {
	Type        ComponentType `json:"type"`
	AmountCents int64         `json:"amountCents"`
	Label       string        `json:"label"`
	Description string        `json:"description,omitempty"`
}

// Input carries everything the calculator needs. Optional fields may be zero.
type Input struct {
	SubtotalCents  int64
	ShippingState  string
	ShippingMethod string
	DiscountCode   string
	PaymentMethod  string
}

// Breakdown is the calculator output. Components lists what should be shown to
// the user: zero-amount discount and fee lines are suppressed, zero-amount
// shipping is kept so a "Free Shipping" line can be rendered.
type Breakdown struct {
	SubtotalCents int64       `json:"subtotalCents"`
	TaxCents      int64       `json:"taxCents"`
	ShippingCents int64       `json:"shippingCents"`
	DiscountCents int64       `json:"discountCents"`
	FeeCents      int64       `json:"feeCents"`
	TotalCents    int64       `json:"totalCents"`
	Components    []Component `json:"components"`
}

const defaultTaxRateBP = 1800 // 18% GST fallback when the state is unknown

// taxRateBPByState maps state codes to tax basis points. Unknown states fall
// back to defaultTaxRateBP; that fallback is business policy, not error hiding.
var taxRateBPByState = map[string]int{
	"MH": 1800,
	"KA": 1800,
	"DL": 1800,
	"TN": 1800,
	"JK": 1200,
	"PY": 1000,
}

const FreeShippingThresholdCents = 99900

const (
	MethodStandard  = "standard"
	MethodExpress   = "express"
	MethodOvernight = "overnight"
)

var shippingRateCents = map[string]int64{
	MethodStandard:  4900,
	MethodExpress:   9900,
	MethodOvernight: 19900,
}

// Discount describes one redeemable code: either a percentage of the subtotal
// or a flat amount, never both.
type Discount struct {
	Code        string
	PercentBP   int
	FlatCents   int64
	Description string
}

var discountTable = map[string]Discount{
	"SAVE10":    {Code: "SAVE10", PercentBP: 1000, Description: "10% off your order"},
	"SAVE20":    {Code: "SAVE20", PercentBP: 2000, Description: "20% off your order"},
	"WELCOME15": {Code: "WELCOME15", PercentBP: 1500, Description: "15% off for new customers"},
	"FLAT100":   {Code: "FLAT100", FlatCents: 10000, Description: "Flat ₹100 off"},
}

const (
	PaymentCOD        = "cod"
	PaymentCard       = "card"
	PaymentUPI        = "upi"
	PaymentNetbanking = "netbanking"
	PaymentIntlCard   = "intl_card"
)

const (
	codFeeCents   = 4000
	intlCardFeeBP = 250
)

// LookupDiscount resolves a discount code. Unknown codes resolve to a zero
// discount rather than an error; checkout must never be blocked by a bad code.
func LookupDiscount(code string) (Discount, bool) {
	d, ok := discountTable[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Discount{}, false
	}
	return d, true
}

// DiscountAmountCents computes the discount a code yields on a subtotal.
// Unknown codes yield zero.
func DiscountAmountCents(code string, subtotalCents int64) int64 {
	d, ok := LookupDiscount(code)
	if !ok {
		return 0
	}
	if d.FlatCents > 0 {
		if d.FlatCents > subtotalCents {
			return subtotalCents
		}
		return d.FlatCents
	}
	return percentOf(subtotalCents, d.PercentBP)
}

// TaxRateBP returns the tax rate for a state code, falling back to the
// default rate for unknown or empty states.
func TaxRateBP(state string) int {
	if bp, ok := taxRateBPByState[strings.ToUpper(strings.TrimSpace(state))]; ok {
		return bp
	}
	return defaultTaxRateBP
}

// ShippingCents returns the shipping charge for a method at a given subtotal.
// Unspecified or unknown methods ship standard.
func ShippingCents(method string, subtotalCents int64) int64 {
	if subtotalCents >= FreeShippingThresholdCents {
		return 0
	}
	rate, ok := shippingRateCents[strings.ToLower(strings.TrimSpace(method))]
	if !ok {
		rate = shippingRateCents[MethodStandard]
	}
	return rate
}

// FeeCents returns the payment-method surcharge.
func FeeCents(method string, subtotalCents int64) int64 {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case PaymentCOD:
		return codFeeCents
	case PaymentIntlCard:
		return percentOf(subtotalCents, intlCardFeeBP)
	default:
		return 0
	}
}

// Calculate produces the full payment breakdown for the given input.
// Tax is charged on the undiscounted subtotal.
func Calculate(in Input) Breakdown {
	discount := DiscountAmountCents(in.DiscountCode, in.SubtotalCents)
	tax := percentOf(in.SubtotalCents, TaxRateBP(in.ShippingState))
	shipping := ShippingCents(in.ShippingMethod, in.SubtotalCents)
	fee := FeeCents(in.PaymentMethod, in.SubtotalCents)

	out := Breakdown{
		SubtotalCents: in.SubtotalCents,
		TaxCents:      tax,
		ShippingCents: shipping,
		DiscountCents: discount,
		FeeCents:      fee,
		TotalCents:    in.SubtotalCents - discount + tax + shipping + fee,
	}

	if discount > 0 {
		d, _ := LookupDiscount(in.DiscountCode)
		out.Components = append(out.Components, Component{
			Type:        ComponentDiscount,
			AmountCents: discount,
			Label:       "Discount",
			Description: d.Description,
		})
	}
	out.Components = append(out.Components, Component{
		Type:        ComponentTax,
		AmountCents: tax,
		Label:       "Tax",
		Description: "GST",
	})
	shippingLabel := "Shipping"
	if shipping == 0 {
		shippingLabel = "Free Shipping"
	}
	out.Components = append(out.Components, Component{
		Type:        ComponentShipping,
		AmountCents: shipping,
		Label:       shippingLabel,
	})
	if fee > 0 {
		out.Components = append(out.Components, Component{
			Type:        ComponentFee,
			AmountCents: fee,
			Label:       "Payment Fee",
			Description: feeDescription(in.PaymentMethod),
		})
	}
	return out
}

func feeDescription(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case PaymentCOD:
		return "Cash on delivery handling fee"
	case PaymentIntlCard:
		return "International card processing fee"
	default:
		return ""
	}
}

// percentOf applies a basis-point rate to an amount in cents, rounding
// half-up to the nearest cent.
func percentOf(amountCents int64, rateBP int) int64 {
	return decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(int64(rateBP))).
		Div(decimal.NewFromInt(10000)).
		Round(0).
		IntPart()
}
