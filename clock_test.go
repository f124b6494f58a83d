package httpcache

import "time"

// fakeClock reports the wall clock offset by a fixed elapsed duration, so
// tests can simulate time passing between storing an entry and looking it
// up again without actually sleeping.
type fakeClock struct {
	elapsed time.Duration
}

func (c *fakeClock) Now() time.Time {
	return time.Now().Add(c.elapsed)
}
