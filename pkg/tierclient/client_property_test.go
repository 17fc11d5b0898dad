package tierclient

import (
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/dd0wney/cluso-cachetier/pkg/logging"
	"github.com/dd0wney/cluso-cachetier/pkg/metrics"
)

// Property: for any number of concurrent initializers, exactly one wins and
// exactly one connection is created.
func TestInitializeOnceProperty(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping property test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	properties.Property("exactly one winner among N concurrent initializers", prop.ForAll(
		func(callers int) bool {
			loc := &stubLocator{}
			c, err := New("cm-prop", DefaultConfig("tcp://localhost:9510"),
				WithLocator(loc),
				WithLogger(logging.NewNopLogger()),
				WithMetrics(metrics.NewRegistry()),
			)
			if err != nil {
				return false
			}

			var wg sync.WaitGroup
			results := make([]bool, callers)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					created, err := c.InitializeOnce()
					results[i] = created && err == nil
				}(i)
			}
			wg.Wait()

			winners := 0
			for _, won := range results {
				if won {
					winners++
				}
			}
			return winners == 1 && loc.callCount() == 1
		},
		gen.IntRange(1, 64),
	))

	properties.Property("recreate always publishes a fresh connection", prop.ForAll(
		func(rejoins int) bool {
			loc := &stubLocator{}
			c, err := New("cm-prop", DefaultConfig("tcp://localhost:9510"),
				WithLocator(loc),
				WithLogger(logging.NewNopLogger()),
				WithMetrics(metrics.NewRegistry()),
			)
			if err != nil {
				return false
			}
			if _, err := c.InitializeOnce(); err != nil {
				return false
			}

			seen := make(map[string]bool)
			conn, _ := c.Connection()
			seen[conn.ID()] = true

			for i := 0; i < rejoins; i++ {
				if err := c.Recreate(); err != nil {
					return false
				}
				conn, ok := c.Connection()
				if !ok || seen[conn.ID()] {
					return false
				}
				seen[conn.ID()] = true
			}

			waitForTeardowns(c)
			return loc.callCount() == rejoins+1
		},
		gen.IntRange(1, 10),
	))

	properties.TestingRun(t)
}
