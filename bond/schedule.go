package bond

import (
	"fmt"
	"math"
	"time"

	"github.com/meenmo/oaslib/calendar"
	"github.com/meenmo/oaslib/utils"
)

// ScheduleError reports a bond whose dates or frequency cannot produce a
// valid cashflow schedule.
type ScheduleError struct {
	ISIN   string
	Reason string
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("schedule error for %s: %s", e.ISIN, e.Reason)
}

// BuildSchedule generates the bond's remaining cashflows as of the
// valuation date.
//
// Coupon dates roll backward from maturity at 12/frequency month steps
// (EDATE arithmetic) down to the first coupon after the issue date, each
// adjusted Modified Following on the given calendar. Only cashflows
// strictly after the valuation date are kept. The terminal cashflow pays
// the final coupon plus notional.
func BuildSchedule(r *Record, valuation time.Time, cal calendar.CalendarID) ([]Cashflow, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if !r.MaturityDate.After(valuation) {
		return nil, &ScheduleError{ISIN: r.ISIN, Reason: fmt.Sprintf("maturity %s not after valuation %s",
			r.MaturityDate.Format("2006-01-02"), valuation.Format("2006-01-02"))}
	}

	months := 12 / r.CouponFrequency
	notional := r.EffectiveNotional()
	coupon := notional * r.CouponRate / float64(r.CouponFrequency)

	// Unadjusted coupon dates, backward from maturity.
	var unadjusted []time.Time
	for d := r.MaturityDate; d.After(r.IssueDate); d = utils.AddMonth(d, -months) {
		unadjusted = append([]time.Time{d}, unadjusted...)
	}
	if len(unadjusted) == 0 {
		return nil, &ScheduleError{ISIN: r.ISIN, Reason: "no coupon dates between issue and maturity"}
	}

	cfs := make([]Cashflow, 0, len(unadjusted))
	for i, d := range unadjusted {
		pay := calendar.Adjust(cal, d)
		if !pay.After(valuation) {
			continue
		}
		cf := Cashflow{
			Date:   pay,
			Time:   r.DayCount.YearFraction(valuation, pay),
			Coupon: coupon,
			Type:   CashflowCoupon,
		}
		if i == len(unadjusted)-1 {
			cf.Principal = notional
			cf.Type = CashflowCouponPrincipal
		}
		cfs = append(cfs, cf)
	}
	if len(cfs) == 0 {
		return nil, &ScheduleError{ISIN: r.ISIN, Reason: "no cashflows remain after valuation date"}
	}

	return RepairTerminal(cfs, notional, r.CouponRate, r.CouponFrequency), nil
}

// RepairTerminal applies the weekend-repair rule: when business-day
// adjustment has left the terminal cashflow as principal only (amount
// within epsilon of the bare notional), the missing final coupon is
// synthesized onto it. The repair touches only the last cashflow and is
// idempotent: a terminal flow already carrying its coupon is left alone.
func RepairTerminal(cfs []Cashflow, notional, couponRate float64, frequency int) []Cashflow {
	if len(cfs) == 0 || couponRate == 0 {
		return cfs
	}
	const eps = 1e-6
	last := &cfs[len(cfs)-1]
	if last.Principal == 0 {
		return cfs
	}
	if math.Abs(last.Amount()-notional) < eps {
		last.Coupon = notional * couponRate / float64(frequency)
		last.Type = CashflowCouponPrincipal
	}
	return cfs
}

// CallStub is the truncated schedule for one call date: coupons up to and
// including the call date, with the call price substituted for principal
// at exercise.
type CallStub struct {
	Call      CallOption
	Time      float64 // year fraction from valuation to the call date
	Cashflows []Cashflow
}

// BuildCallStubs derives the per-call-date stub schedules a callable bond
// exposes to the OAS simulator. Calls on or before the valuation date are
// skipped.
func BuildCallStubs(r *Record, cfs []Cashflow, valuation time.Time) []CallStub {
	if !r.Callable() {
		return nil
	}
	notional := r.EffectiveNotional()
	stubs := make([]CallStub, 0, len(r.CallSchedule))
	for _, call := range r.CallSchedule {
		if !call.Date.After(valuation) {
			continue
		}
		callTime := r.DayCount.YearFraction(valuation, call.Date)

		stub := make([]Cashflow, 0, len(cfs)+1)
		for _, cf := range cfs {
			if !cf.Date.After(call.Date) {
				c := cf
				c.Principal = 0
				c.Type = CashflowCoupon
				stub = append(stub, c)
			}
		}
		stub = append(stub, Cashflow{
			Date:      call.Date,
			Time:      callTime,
			Principal: notional * call.Price / 100.0,
			Type:      CashflowPrincipal,
		})
		stubs = append(stubs, CallStub{Call: call, Time: callTime, Cashflows: stub})
	}
	return stubs
}
