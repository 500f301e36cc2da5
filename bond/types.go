package bond

import (
	"fmt"
	"time"
)

// CashflowType tags what a cashflow pays.
type CashflowType int

const (
	CashflowCoupon CashflowType = iota
	CashflowPrincipal
	CashflowCouponPrincipal
)

func (t CashflowType) String() string {
	switch t {
	case CashflowCoupon:
		return "coupon"
	case CashflowPrincipal:
		return "principal"
	case CashflowCouponPrincipal:
		return "coupon+principal"
	default:
		return "unknown"
	}
}

// Cashflow is a single dated cash payment for a bond.
//
// Time is the year fraction from the valuation date under the bond's
// day-count basis; amounts are in currency units per the bond's notional.
// Cashflows are built once per valuation request and not mutated after.
type Cashflow struct {
	Date      time.Time
	Time      float64
	Coupon    float64
	Principal float64
	Type      CashflowType
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// CallType distinguishes exercise styles on the call schedule.
type CallType string

const (
	CallAmerican  CallType = "AMERICAN"
	CallEuropean  CallType = "EUROPEAN"
	CallBermudan  CallType = "BERMUDAN"
	CallMakeWhole CallType = "MAKE_WHOLE"
)

// CallOption is one entry of a bond's call schedule. Price is quoted per
// 100 notional.
type CallOption struct {
	Date  time.Time
	Price float64
	Type  CallType
}

// Record is a bond as handed over by the (external) loaders: reference
// data merged with schedule and price records. Accrued interest is always
// sourced externally and never derived here; absent means zero.
type Record struct {
	ISIN            string
	Currency        string
	IssueDate       time.Time
	MaturityDate    time.Time
	CouponRate      float64 // decimal, e.g. 0.05
	CouponFrequency int     // coupons per year: 1, 2, 4 or 12
	DayCount        DayCount
	Notional        float64 // defaults to 100
	CallSchedule    []CallOption
	CleanPrice      float64
	AccruedInterest float64
}

// Validate checks the record's structural invariants.
func (r *Record) Validate() error {
	if !r.MaturityDate.After(r.IssueDate) {
		return &ScheduleError{ISIN: r.ISIN, Reason: fmt.Sprintf("maturity %s not after issue %s",
			r.MaturityDate.Format("2006-01-02"), r.IssueDate.Format("2006-01-02"))}
	}
	switch r.CouponFrequency {
	case 1, 2, 4, 12:
	default:
		return &ScheduleError{ISIN: r.ISIN, Reason: fmt.Sprintf("coupon frequency %d not in {1,2,4,12}", r.CouponFrequency)}
	}
	for _, call := range r.CallSchedule {
		if !call.Date.Before(r.MaturityDate) {
			return &ScheduleError{ISIN: r.ISIN, Reason: fmt.Sprintf("call date %s not before maturity %s",
				call.Date.Format("2006-01-02"), r.MaturityDate.Format("2006-01-02"))}
		}
	}
	return nil
}

// EffectiveNotional returns the notional, defaulting to 100.
func (r *Record) EffectiveNotional() float64 {
	if r.Notional <= 0 {
		return 100.0
	}
	return r.Notional
}

// DirtyPrice is clean price plus externally supplied accrued interest.
func (r *Record) DirtyPrice() float64 {
	return r.CleanPrice + r.AccruedInterest
}

// Callable reports whether the record carries a non-empty call schedule.
func (r *Record) Callable() bool {
	return len(r.CallSchedule) > 0
}

// Compounding returns the periods per year used for discounting: semi-annual
// when the bond pays semi-annually, annual otherwise. Fixed policy; never
// continuous.
func (r *Record) Compounding() int {
	if r.CouponFrequency == 2 {
		return 2
	}
	return 1
}
