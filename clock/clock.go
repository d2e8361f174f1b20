package clock

import "time"

// Clock abstracts time.Now so quota resets and timestamped filenames can
// be tested with a fixed instant.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func NewClock() Clock {
	return &realClock{}
}
