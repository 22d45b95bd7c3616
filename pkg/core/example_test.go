package core_test

import (
	"context"
	"fmt"
	"os"

	"github.com/deploylint/deploylint/pkg/core"
)

// ExampleCheck demonstrates how to check a single project.
func ExampleCheck() {
	// 1. Configure the check
	cfg := core.Config{
		Root:    ".", // Project root
		Threads: 4,   // Rules evaluated concurrently
	}

	// 2. Run it
	rep := core.Check(context.Background(), cfg)
	if rep.Invalid {
		fmt.Fprintf(os.Stderr, "Check failed: %v\n", rep.Err())
		return
	}

	// 3. Process findings
	for _, f := range rep.Findings {
		if f.Failed() {
			fmt.Printf("%s: %s\n", f.Rule, f.Message)
		}
	}
}

// ExampleCheckAll shows how to check several projects and derive the CLI
// exit status.
func ExampleCheckAll() {
	reps := core.CheckAll(context.Background(), core.Config{}, []string{"services/api", "services/admin"})
	_ = core.MarshalReports(os.Stdout, reps)
	os.Exit(core.ExitCode(reps, "warning"))
}
