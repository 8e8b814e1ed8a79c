package summary_cache_populate

import (
	"fmt"

	jobrt "github.com/arcpp/proteome-backend/internal/jobs/runtime"
	"github.com/arcpp/proteome-backend/internal/modules/proteomics/species"
)

// Run populates every species named by the payload's "species" key, or
// all registered species when it is absent.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}

	targets := p.species.All()
	if id := jc.PayloadString("species"); id != "" {
		sp, ok := p.species.Lookup(id)
		if !ok {
			jc.Fail("validate", fmt.Errorf("unknown species %q", id))
			return nil
		}
		targets = []species.Species{sp}
	}

	results := make([]any, 0, len(targets))
	for i, sp := range targets {
		jc.Progress("populate", progressPct(i, len(targets)))
		// each page refreshes the heartbeat so the run is not reclaimed as stale
		res, err := p.populator.Run(jc.Ctx, sp, func(int) {
			jc.Heartbeat()
		})
		if err != nil {
			jc.Fail("populate", fmt.Errorf("%s: %w", sp.ID, err))
			return nil
		}
		results = append(results, res)
	}

	jc.Succeed("done", map[string]any{"species": results})
	return nil
}

// progressPct spreads species evenly over 1..99.
func progressPct(index, total int) int {
	if total <= 0 {
		return 1
	}
	pct := 1 + index*98/total
	if pct > 99 {
		pct = 99
	}
	return pct
}
