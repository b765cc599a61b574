package habit

// StreakDecision is the outcome of comparing the last completion to today
type StreakDecision int

const (
	// Reset starts the streak over at 1 (first completion, or a period was missed)
	Reset StreakDecision = iota
	// Hold leaves the streak unchanged (already completed in the current period)
	Hold
	// Increment extends the streak by one (last completion was the previous period)
	Increment
)

func (d StreakDecision) String() string {
	switch d {
	case Reset:
		return "reset"
	case Hold:
		return "hold"
	case Increment:
		return "increment"
	default:
		return "unknown"
	}
}

// Apply returns the new streak value for the decision
func (d StreakDecision) Apply(streak int) int {
	switch d {
	case Hold:
		return streak
	case Increment:
		return streak + 1
	default:
		return 1
	}
}

// PeriodStart returns the first day of the period containing d. Weekly
// periods are ISO weeks starting on Monday.
func (f Frequency) PeriodStart(d Date) Date {
	switch f {
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDays(-offset)
	case Monthly:
		return Date{Year: d.Year, Month: d.Month, Day: 1}
	default:
		return d
	}
}

// Advance decides how a streak moves when something is completed on today,
// given the day of the previous completion (nil if there is none).
//
// Daily habits compare against the most recent scheduled day before today,
// so a Monday/Wednesday/Friday habit keeps its streak across the days it is
// not due. Weekly and monthly habits compare whole periods.
func Advance(last *Date, today Date, freq Frequency, schedule Schedule) StreakDecision {
	if last == nil || last.IsZero() {
		return Reset
	}

	switch freq {
	case Weekly, Monthly:
		current := freq.PeriodStart(today)
		lastPeriod := freq.PeriodStart(*last)
		if lastPeriod == current || lastPeriod.After(current) {
			return Hold
		}
		previous := freq.PeriodStart(current.AddDays(-1))
		if lastPeriod == previous {
			return Increment
		}
		return Reset

	default:
		// A completion dated after today happens when a user moves to an
		// earlier time zone; count it as today's.
		if *last == today || last.After(today) {
			return Hold
		}
		if len(schedule) == 0 {
			schedule = DefaultSchedule()
		}
		if !last.Before(schedule.PreviousScheduled(today)) {
			return Increment
		}
		return Reset
	}
}
