package billing

import (
	"errors"
	"math"
)

// GSTRatePercent is the flat rate applied to hospital services, split evenly
// between the central and state components.
const GSTRatePercent = 18.0

var (
	ErrNegativeAmount   = errors.New("amount cannot be negative")
	ErrInvalidDiscount  = errors.New("discount must be between 0 and 100 percent")
	ErrNegativeCoverage = errors.New("insurance cover cannot be negative")
)

// Breakdown is the full money math for one estimate. All values are rupees
// rounded to two decimals.
type Breakdown struct {
	Subtotal       float64 `bson:"subtotal" json:"subtotal"`
	DiscountAmount float64 `bson:"discountAmount" json:"discountAmount"`
	TaxableAmount  float64 `bson:"taxableAmount" json:"taxableAmount"`
	CGST           float64 `bson:"cgst" json:"cgst"`
	SGST           float64 `bson:"sgst" json:"sgst"`
	TotalGST       float64 `bson:"totalGst" json:"totalGst"`
	InsuranceCover float64 `bson:"insuranceCover" json:"insuranceCover"`
	Payable        float64 `bson:"payable" json:"payable"`
}

// Compute applies discount, GST and insurance cover to a subtotal. Insurance
// cover beyond the billed amount floors the payable at zero rather than going
// negative.
func Compute(subtotal, discountPercent, insuranceCover float64) (Breakdown, error) {
	if subtotal < 0 {
		return Breakdown{}, ErrNegativeAmount
	}
	if discountPercent < 0 || discountPercent > 100 {
		return Breakdown{}, ErrInvalidDiscount
	}
	if insuranceCover < 0 {
		return Breakdown{}, ErrNegativeCoverage
	}

	discount := round2(subtotal * discountPercent / 100)
	taxable := round2(subtotal - discount)
	half := round2(taxable * GSTRatePercent / 2 / 100)
	totalGST := round2(half * 2)

	payable := round2(taxable + totalGST - insuranceCover)
	if payable < 0 {
		payable = 0
	}

	return Breakdown{
		Subtotal:       round2(subtotal),
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		CGST:           half,
		SGST:           half,
		TotalGST:       totalGST,
		InsuranceCover: round2(insuranceCover),
		Payable:        payable,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
