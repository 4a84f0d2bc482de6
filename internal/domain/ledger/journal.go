package ledger

import "sort"

// journal tracks everything mutated since the last drain so the service can
// persist exactly the touched records, or put them back if persisting fails.
type journal struct {
	events  []Event
	payouts []Payout
	before  map[uint64]Stream
	created uint64

	treasury Treasury
	tax      TaxConfig
	yieldBps uint16
	access   Access
}

func (l *Ledger) begin() {
	l.journal = journal{
		before:   map[uint64]Stream{},
		created:  l.registry.next(),
		treasury: l.treasury,
		tax:      l.tax,
		yieldBps: l.yieldBps,
		access:   l.access.clone(),
	}
}

// touch records the before-image of an existing stream prior to mutation.
func (l *Ledger) touch(s *Stream) {
	if s.ID >= l.journal.created {
		return
	}
	if _, ok := l.journal.before[s.ID]; !ok {
		l.journal.before[s.ID] = *s
	}
}

func (l *Ledger) emit(e Event) {
	l.journal.events = append(l.journal.events, e)
}

// Drain returns the pending changes and starts a new journal.
func (l *Ledger) Drain() Changes {
	changes := l.Pending()
	l.Checkpoint()
	return changes
}

// Checkpoint accepts the pending changes; Rollback will not undo them.
func (l *Ledger) Checkpoint() {
	l.begin()
}

// Pending returns what changed since the last checkpoint.
func (l *Ledger) Pending() Changes {
	ids := make([]uint64, 0, len(l.journal.before))
	for id := range l.journal.before {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	streams := make([]Stream, 0, len(ids))
	for _, id := range ids {
		streams = append(streams, l.registry.streams[id])
	}
	streams = append(streams, l.registry.streams[l.journal.created:]...)

	return Changes{
		Globals: l.globals(),
		Streams: streams,
		Events:  l.journal.events,
		Payouts: l.journal.payouts,
	}
}

// Rollback restores the state captured at the last checkpoint.
func (l *Ledger) Rollback() {
	for id, s := range l.journal.before {
		l.registry.streams[id] = s
	}
	l.registry.truncate(l.journal.created)
	l.treasury = l.journal.treasury
	l.tax = l.journal.tax
	l.yieldBps = l.journal.yieldBps
	l.access = l.journal.access
	l.begin()
}
