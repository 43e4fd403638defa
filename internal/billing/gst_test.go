package billing

import (
	"errors"
	"testing"
)

func TestComputePlain(t *testing.T) {
	b, err := Compute(1000, 0, 0)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if b.CGST != 90 || b.SGST != 90 {
		t.Errorf("CGST/SGST = %v/%v, want 90/90", b.CGST, b.SGST)
	}
	if b.TotalGST != 180 {
		t.Errorf("TotalGST = %v, want 180", b.TotalGST)
	}
	if b.Payable != 1180 {
		t.Errorf("Payable = %v, want 1180", b.Payable)
	}
}

func TestComputeWithDiscountAndCover(t *testing.T) {
	b, err := Compute(2000, 10, 500)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if b.DiscountAmount != 200 {
		t.Errorf("DiscountAmount = %v, want 200", b.DiscountAmount)
	}
	if b.TaxableAmount != 1800 {
		t.Errorf("TaxableAmount = %v, want 1800", b.TaxableAmount)
	}
	if b.CGST != 162 || b.SGST != 162 {
		t.Errorf("CGST/SGST = %v/%v, want 162/162", b.CGST, b.SGST)
	}
	// 1800 + 324 - 500
	if b.Payable != 1624 {
		t.Errorf("Payable = %v, want 1624", b.Payable)
	}
}

func TestComputeCoverExceedsBill(t *testing.T) {
	b, err := Compute(500, 0, 10000)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if b.Payable != 0 {
		t.Errorf("Payable = %v, want 0", b.Payable)
	}
}

func TestComputeRounding(t *testing.T) {
	b, err := Compute(999.99, 0, 0)
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	if b.CGST != 90 || b.SGST != 90 {
		t.Errorf("CGST/SGST = %v/%v, want 90/90", b.CGST, b.SGST)
	}
	if b.Payable != 1179.99 {
		t.Errorf("Payable = %v, want 1179.99", b.Payable)
	}
}

func TestComputeRejectsBadInput(t *testing.T) {
	if _, err := Compute(-1, 0, 0); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("negative subtotal: got %v", err)
	}
	if _, err := Compute(100, 101, 0); !errors.Is(err, ErrInvalidDiscount) {
		t.Errorf("discount > 100: got %v", err)
	}
	if _, err := Compute(100, -1, 0); !errors.Is(err, ErrInvalidDiscount) {
		t.Errorf("negative discount: got %v", err)
	}
	if _, err := Compute(100, 0, -5); !errors.Is(err, ErrNegativeCoverage) {
		t.Errorf("negative cover: got %v", err)
	}
}
