package clock

import "time"

// Clock abstracts the time source for snapshot names and backup keys.
type Clock interface {
	Now() time.Time
}

// Func adapts a function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Default is the global clock. Overwrite in tests with Set.
var Default Clock = Func(time.Now)

// Now returns the current time from the default clock.
func Now() time.Time { return Default.Now() }

// Set replaces the default clock and returns a restore function.
func Set(c Clock) (restore func()) {
	prev := Default
	Default = c
	return func() { Default = prev }
}

// Stepper returns a clock starting at start that advances by step on every call.
func Stepper(start time.Time, step time.Duration) Clock {
	cur := start
	return Func(func() time.Time {
		v := cur
		cur = cur.Add(step)
		return v
	})
}

// UTCFormatted formats the current time in UTC with layout.
func UTCFormatted(layout string) string { return Now().UTC().Format(layout) }
