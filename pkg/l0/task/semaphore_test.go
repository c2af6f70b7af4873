package task

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type incrementer struct {
	Task
	sem     *Semaphore
	counter *int
	holders *int
	seen    int
	rounds  int
	maxSeen int
}

const (
	pcAcquire PC = iota + 1
	pcCommit
)

// run reads the shared counter, yields while holding the permit and then
// writes back; without mutual exclusion updates would be lost.
func (inc *incrementer) run(t *Task) Status {
	switch t.Begin() {
	case Start, pcAcquire:
		if inc.sem.Wait(t, pcAcquire) {
			return Waiting
		}
		*inc.holders++
		if *inc.holders > inc.maxSeen {
			inc.maxSeen = *inc.holders
		}
		inc.seen = *inc.counter
		return t.Yield(pcCommit)
	case pcCommit:
		*inc.counter = inc.seen + 1
		*inc.holders--
		inc.sem.Signal()
		inc.rounds++
		if inc.rounds >= 10 {
			return t.Exit(ExitOK)
		}
	}
	return t.End()
}

func TestSemaphoreMutualExclusion(t *testing.T) {
	sem := Semaphore(1)
	var counter, holders int
	s := NewScheduler(2)
	incs := make([]*incrementer, 2)
	for n := range incs {
		incs[n] = &incrementer{sem: &sem, counter: &counter, holders: &holders}
		incs[n].Init("inc")
		require.NoError(t, s.Add(&incs[n].Task, incs[n].run))
	}
	require.Equal(t, ExitOK, s.Run())
	require.Equal(t, 20, counter)
	require.Equal(t, 1, sem.Value())
	require.Equal(t, 0, holders)
	for _, inc := range incs {
		require.Equal(t, 1, inc.maxSeen)
		require.Equal(t, 10, inc.rounds)
	}
}

func TestSemaphoreWait(t *testing.T) {
	var sem Semaphore
	tk := New("w")
	require.True(t, sem.Wait(tk, pcAcquire))
	require.Equal(t, pcAcquire, tk.PC())
	sem.Signal()
	sem.Signal()
	require.False(t, sem.Wait(tk, pcAcquire))
	require.Equal(t, 1, sem.Value())
	require.False(t, sem.Wait(tk, pcAcquire))
	require.Equal(t, 0, sem.Value())
	require.True(t, sem.Wait(tk, pcAcquire))
}
