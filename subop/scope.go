package subop

import "github.com/inkfuse/inkfuse/iu"

// Scope identifies a maximal run of suboperators within a pipeline
// over which the active selection vector and row identities stay
// consistent (spec §3 glossary "Scope", §4.2 "Scoping"). A scope
// boundary is introduced by a suboperator that either changes the
// selection vector (a filter) or allocates a scratch IU (a
// scratch-pad provider) — modeled here as any suboperator carrying an
// OutgoingStrong link, since that is exactly the set of nodes that
// force their consumer into a nested code region.
//
// ComputeScopes partitions a pipeline's suboperators into scopes by
// walking it in order and starting a new scope every time an
// OutgoingStrong producer is encountered. Suboperators under
// IncomingStrong never start a new scope on their own; they are
// pulled into the scope of whichever OutgoingStrong (or strong
// interior) node they are linked to.
func ComputeScopes(p *Pipeline) [][]*Suboperator {
	var scopes [][]*Suboperator
	var current []*Suboperator
	for _, s := range p.Subs {
		current = append(current, s)
		if s.OutgoingStrong {
			scopes = append(scopes, current)
			current = nil
		}
	}
	if len(current) > 0 {
		scopes = append(scopes, current)
	}
	return scopes
}

// StrongPairs returns every adjacent (producer, consumer) pair in the
// pipeline joined by a strong link — either the producer is
// OutgoingStrong or the consumer is IncomingStrong — in pipeline
// order. Repipe consults this to avoid ever separating such a pair
// across a fuse-chunk boundary (spec §4.2).
func StrongPairs(p *Pipeline) [][2]int {
	var pairs [][2]int
	for i, s := range p.Subs {
		if !s.OutgoingStrong {
			continue
		}
		// the strong-linked consumer is the next suboperator in
		// topological order that consumes one of s's provided IUs.
		for j := i + 1; j < len(p.Subs); j++ {
			if consumesAny(p.Subs[j], s.Provided) {
				pairs = append(pairs, [2]int{i, j})
				break
			}
		}
	}
	for i, s := range p.Subs {
		if !s.IncomingStrong {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			if producesAny(p.Subs[j], s.Sources) {
				pairs = append(pairs, [2]int{j, i})
				break
			}
		}
	}
	return pairs
}

func consumesAny(s *Suboperator, ids []*iu.IU) bool {
	for _, src := range s.Sources {
		for _, id := range ids {
			if src == id {
				return true
			}
		}
	}
	return false
}

func producesAny(s *Suboperator, ids []*iu.IU) bool {
	for _, p := range s.Provided {
		for _, id := range ids {
			if p == id {
				return true
			}
		}
	}
	return false
}
