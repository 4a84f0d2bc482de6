package ledger

import "paystream/internal/platform/address"

// Registry is the append-only arena of streams. A stream's ID is its index.
type Registry struct {
	streams    []Stream
	byEmployee map[address.Address][]uint64
}

func newRegistry(streams []Stream) *Registry {
	r := &Registry{
		streams:    make([]Stream, 0, len(streams)),
		byEmployee: map[address.Address][]uint64{},
	}
	for _, s := range streams {
		r.append(s)
	}
	return r
}

func (r *Registry) append(s Stream) uint64 {
	s.ID = uint64(len(r.streams))
	r.streams = append(r.streams, s)
	r.byEmployee[s.Employee] = append(r.byEmployee[s.Employee], s.ID)
	return s.ID
}

func (r *Registry) get(id uint64) (*Stream, error) {
	if id >= uint64(len(r.streams)) {
		return nil, ErrStreamNotFound
	}
	return &r.streams[id], nil
}

func (r *Registry) next() uint64 {
	return uint64(len(r.streams))
}

// truncate drops streams created after n. Used only to undo creations.
func (r *Registry) truncate(n uint64) {
	for id := uint64(len(r.streams)); id > n; id-- {
		s := r.streams[id-1]
		ids := r.byEmployee[s.Employee]
		if len(ids) > 0 && ids[len(ids)-1] == s.ID {
			ids = ids[:len(ids)-1]
		}
		if len(ids) == 0 {
			delete(r.byEmployee, s.Employee)
		} else {
			r.byEmployee[s.Employee] = ids
		}
	}
	r.streams = r.streams[:n]
}

func (r *Registry) idsFor(employee address.Address) []uint64 {
	ids := r.byEmployee[employee]
	out := make([]uint64, len(ids))
	copy(out, ids)
	return out
}

func (r *Registry) all() []Stream {
	out := make([]Stream, len(r.streams))
	copy(out, r.streams)
	return out
}
