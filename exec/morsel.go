package exec

import (
	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/subop"
)

// runMorsel runs every suboperator of pipe against chunk over
// [start, end), replaying any suboperator whose Interpret returns
// Retry until it reports Done. The restart-flag back-channel (spec §9)
// is modeled as this return value rather than a side-channel read out
// of the arena, so the replay loop lives here instead of in the arena.
func runMorsel(rt *subop.Runtime, chunk *column.FuseChunk, pipe *subop.Pipeline, start, end int) error {
	for _, s := range pipe.Subs {
		if s.Interpret == nil {
			continue
		}
		for {
			res, err := s.Interpret(rt, chunk, start, end)
			if err != nil {
				return err
			}
			if res == subop.Done {
				break
			}
		}
	}
	return nil
}
