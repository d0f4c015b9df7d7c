// Package relationship classifies inter-domain adjacencies.
package relationship

import "github.com/signalsfoundry/netintent/model"

// Resolver classifies the eBGP session between two routers.
type Resolver struct {
	byPair map[[2]string]model.RelationshipKind
}

// NewResolver indexes the declared relationships. When a pair is declared
// more than once the first declaration wins, in either direction.
func NewResolver(rels []model.Relationship) *Resolver {
	r := &Resolver{byPair: make(map[[2]string]model.RelationshipKind, len(rels))}
	for _, rel := range rels {
		if _, seen := r.byPair[[2]string{rel.From, rel.To}]; seen {
			continue
		}
		if _, seen := r.byPair[[2]string{rel.To, rel.From}]; seen {
			continue
		}
		r.byPair[[2]string{rel.From, rel.To}] = rel.Kind
	}
	return r
}

// Resolve returns the kind declared for the pair, matched in either order,
// so both ends of a session attach the same route-maps. Undeclared pairs
// are peers.
func (r *Resolver) Resolve(local, remote string) model.RelationshipKind {
	if r == nil {
		return model.RelationshipPeer
	}
	if k, ok := r.byPair[[2]string{local, remote}]; ok {
		return k
	}
	if k, ok := r.byPair[[2]string{remote, local}]; ok {
		return k
	}
	return model.RelationshipPeer
}
