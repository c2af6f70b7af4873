// Package task provides cooperative, stackless multitasking.
package task

// A task is an ordinary function plus a Task object holding its resume
// point. Nothing of the call stack survives a suspension: variables that
// must live across suspension points belong to the task object (embed Task
// into a struct, or use Mold). The function dispatches on the resume point
// at entry:
//
//	func (b *blinker) run(t *task.Task) task.Status {
//		switch t.Begin() {
//		case task.Start:
//			b.led = !b.led
//			return t.Yield(pcWait)
//		case pcWait:
//			if t.WaitUntil(pcWait, b.tick()) {
//				return task.Waiting
//			}
//		}
//		return t.End()
//	}
//
// The Scheduler visits registered tasks round-robin on a single thread.
// A task slice runs uninterrupted between suspension points, which is the
// only mutual exclusion tasks get (and all they need).
