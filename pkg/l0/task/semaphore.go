package task

// Semaphore is a counting semaphore for tasks of one scheduler.
// Waiters are not queued; whichever waiting task runs first after a
// Signal claims the unit.
type Semaphore int

// Wait parks t at point at until a unit is available and claims it.
// When it returns true the caller must return Waiting.
func (s *Semaphore) Wait(t *Task, at PC) bool {
	if t.WaitUntil(at, *s > 0) {
		return true
	}
	*s--
	return false
}

// Signal releases a unit.
func (s *Semaphore) Signal() {
	*s++
}

// Value returns the current count.
func (s *Semaphore) Value() int {
	return int(*s)
}
