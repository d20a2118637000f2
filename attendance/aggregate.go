/*
aggregate.go - The interval aggregator

PURPOSE:
  Reconstructs, from the raw ordered event log, the amount of time
  worked per calendar day over a requested range, and the resulting
  wage. The Summary is derived fresh on every call and never cached;
  it is a pure function of the event log and the wage at query time.
  A wage change retroactively reprices past days, which is documented
  behavior.

ALGORITHM:
  A single fold over the ascending event stream, keyed by the calendar
  date of each timestamp. Within a day, clock_in/end_break open an
  interval (overwriting any open one) and clock_out/start_break close
  it, adding the elapsed seconds. An unterminated interval contributes
  nothing until closed; a close with no open start contributes nothing.
  Neither can occur for events produced via the state machine, but
  foreign rows must not crash the aggregator.

ROUNDING:
  TotalHours and TotalWage are rounded to 2 decimal places using
  decimal arithmetic so the reported wage never carries float noise.

SEE ALSO:
  - machine.go: Where the log's ordering invariant comes from
  - store.go:   EventsInRange / HourlyWage
*/
package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregator computes daily work series and wage summaries.
type Aggregator struct {
	store Store
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Summarize computes the zero-filled daily hours series and wage summary
// for one employee over the half-open day range [start, end): the label
// series has end-start days and the event read stops at end's midnight,
// capturing everything inside the last included day.
//
// start after end fails with ErrInvalidRange; an unknown employee fails
// with ErrEmployeeNotFound; an unset wage counts as 0. Any store fault is
// wrapped in an AggregationError and no partial series is ever returned.
func (a *Aggregator) Summarize(ctx context.Context, id EmployeeID, start, end time.Time) (*Summary, error) {
	start = startOfDay(start)
	end = startOfDay(end)
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	wage, err := a.store.HourlyWage(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, &AggregationError{EmployeeID: id, Cause: err}
	}
	hourlyWage := 0.0
	if wage != nil {
		hourlyWage = *wage
	}

	events, err := a.store.EventsInRange(ctx, id, start, end)
	if err != nil {
		return nil, &AggregationError{EmployeeID: id, Cause: err}
	}

	daily := foldDailySeconds(events)

	days := int(end.Sub(start).Hours() / 24)
	labels := make([]string, 0, days)
	hours := make([]float64, 0, days)
	total := decimal.Zero
	for d, cur := 0, start; d < days; d, cur = d+1, cur.AddDate(0, 0, 1) {
		label := DateLabel(cur)
		h := daily[label] / 3600
		labels = append(labels, label)
		hours = append(hours, h)
		total = total.Add(decimal.NewFromFloat(h))
	}

	wageDec := decimal.NewFromFloat(hourlyWage)
	totalHours, _ := total.Round(2).Float64()
	totalWage, _ := total.Mul(wageDec).Round(2).Float64()

	return &Summary{
		Labels:     labels,
		Hours:      hours,
		TotalHours: totalHours,
		TotalWage:  totalWage,
		HourlyWage: hourlyWage,
	}, nil
}

// foldDailySeconds reduces the ordered event stream into worked seconds
// keyed by calendar-day label. The ascending order makes each day's events
// contiguous, so one pass with a single open-interval start suffices.
func foldDailySeconds(events []Event) map[string]float64 {
	daily := make(map[string]float64)
	var openStart *time.Time
	currentDay := ""

	for _, ev := range events {
		day := DateLabel(ev.Timestamp)
		if day != currentDay {
			// Day boundary: any interval left open on the previous day
			// contributes nothing. The state machine never produces one,
			// but an overnight open clock_in must not leak across days.
			openStart = nil
			currentDay = day
		}

		switch {
		case ev.Type.opensInterval():
			// Overwrite, not stack: only one open interval is possible
			// under the state machine, and overwriting guards against
			// rows written behind its back.
			ts := ev.Timestamp
			openStart = &ts
		case ev.Type.closesInterval():
			if openStart != nil {
				daily[day] += ev.Timestamp.Sub(*openStart).Seconds()
				openStart = nil
			}
		}
	}
	return daily
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
