package ledger

import (
	"sort"

	"paystream/internal/platform/address"
)

// Access is the owner + HR role set.
type Access struct {
	owner    address.Address
	deployer address.Address
	hr       map[address.Address]struct{}
}

func newAccess(owner, deployer address.Address, hr []address.Address) Access {
	a := Access{owner: owner, deployer: deployer, hr: make(map[address.Address]struct{}, len(hr))}
	for _, member := range hr {
		a.hr[member] = struct{}{}
	}
	return a
}

func (a Access) Owner() address.Address { return a.owner }
func (a Access) Deployer() address.Address { return a.deployer }

func (a Access) IsOwner(caller address.Address) bool {
	return !caller.IsZero() && caller == a.owner
}

func (a Access) IsHR(caller address.Address) bool {
	if caller.IsZero() {
		return false
	}
	_, ok := a.hr[caller]
	return ok
}

func (a Access) IsManager(caller address.Address) bool {
	return a.IsOwner(caller) || a.IsHR(caller)
}

func (a Access) members() []address.Address {
	out := make([]address.Address, 0, len(a.hr))
	for member := range a.hr {
		out = append(out, member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (a Access) clone() Access {
	return newAccess(a.owner, a.deployer, a.members())
}
