package session

import "time"

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from running. It returns false if the call
	// already ran or was stopped.
	Stop() bool
}

// Scheduler runs f after d on its own goroutine. Tests swap in a manual
// scheduler to fire timers deterministically.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler returns the wall clock scheduler backed by time.AfterFunc
func RealScheduler() Scheduler {
	return realScheduler{}
}
