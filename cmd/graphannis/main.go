// Command graphannis is a small cobra CLI demonstrating the core library:
// it builds a tiny corpus from an update script, joins AnyToken searches
// with a Precedence(1,1) operator, and prints the adjacent token pairs. It
// is a thin wrapper around
// pkg/gscorpus, pkg/update and pkg/query; the service/RPC surface a real
// CorpusStorage façade would expose is explicitly out of scope (spec.md
// §1), so this entry point stays a demo/benchmark harness in the
// teacher's cobra cmd/ idiom rather than a server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/korpling/graphannis-core/pkg/config"
	"github.com/korpling/graphannis-core/pkg/gscorpus"
	"github.com/korpling/graphannis-core/pkg/query"
	"github.com/korpling/graphannis-core/pkg/types"
	"github.com/korpling/graphannis-core/pkg/update"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "graphannis",
		Short: "graphannis-core demo CLI",
		Long: `graphannis-core is an embeddable corpus-query engine for linguistic
annotation graphs. This CLI is a small demo/benchmark harness around the
core library, not a service: it builds an in-memory corpus from a
hard-coded update script and runs a sample query against it.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graphannis-core v%s\n", version)
		},
	})
	root.AddCommand(newDemoCmd())
	return root
}

func newDemoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "build a tiny corpus and run a sample token query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadFromEnv()
			if err := cfg.Validate(); err != nil {
				return err
			}
			fmt.Printf("using %s\n", cfg)
			return runDemo(cfg)
		},
	}
}

// runDemo builds a four-token sentence "the quick fox jumps", chains it
// with an Ordering component, and runs an AnyToken search followed by a
// Precedence(1,1) join to print adjacent token pairs.
func runDemo(cfg *config.Config) error {
	g := gscorpus.New()

	u := update.New()
	tokens := []string{"the", "quick", "fox", "jumps"}
	for i, tok := range tokens {
		name := fmt.Sprintf("tok%d", i)
		u.Add(update.NewAddNode(name, "node"))
		u.Add(update.NewAddNodeLabel(name, "annis", "tok", tok))
		// Every token is its own left-most/right-most covered token
		// (spec.md §3 invariant 5).
		u.Add(update.NewAddEdge(name, name, string(types.LeftToken), "annis", ""))
		u.Add(update.NewAddEdge(name, name, string(types.RightToken), "annis", ""))
	}
	for i := 0; i < len(tokens)-1; i++ {
		u.Add(update.NewAddEdge(
			fmt.Sprintf("tok%d", i), fmt.Sprintf("tok%d", i+1),
			string(types.Ordering), "annis", ""))
	}
	if err := g.ApplyUpdate(u); err != nil {
		return fmt.Errorf("apply update: %w", err)
	}

	search, err := query.AnyToken(g)
	if err != nil {
		return fmt.Errorf("build token search: %w", err)
	}

	prec, err := query.NewPrecedence(g, 1, 1)
	if err != nil {
		return fmt.Errorf("build precedence operator: %w", err)
	}

	rhsSearch, err := query.AnyToken(g)
	if err != nil {
		return fmt.Errorf("build rhs token search: %w", err)
	}

	lhs := query.NewNodeSearchExec("tok1", search)
	plan := query.NewParallelIndexJoin(lhs, 0, prec, rhsSearch.Desc, g, cfg.ParallelWorkers)
	defer func() { _ = plan.Close() }()

	for {
		tuple, ok, err := plan.Next()
		if err != nil {
			return fmt.Errorf("run plan: %w", err)
		}
		if !ok {
			break
		}
		fmt.Printf("%d -> %d\n", tuple[0].Node, tuple[1].Node)
	}
	return nil
}
