package sfsynth

import "sort"

type scheduled struct {
	at  float64
	run func()
}

// eventQueue holds deferred actions ordered by absolute time. Actions with
// equal times run in the order they were scheduled.
type eventQueue struct {
	items []scheduled
}

func (q *eventQueue) push(at float64, run func()) {
	i := sort.Search(len(q.items), func(i int) bool { return q.items[i].at > at })
	q.items = append(q.items, scheduled{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = scheduled{at: at, run: run}
}

// popDue removes and returns the earliest action due at or before now.
func (q *eventQueue) popDue(now float64) (func(), bool) {
	if len(q.items) == 0 || q.items[0].at > now {
		return nil, false
	}
	run := q.items[0].run
	q.items[0] = scheduled{}
	q.items = q.items[1:]
	return run, true
}

func (q *eventQueue) len() int { return len(q.items) }

func (q *eventQueue) clear() { q.items = nil }
