// caseworkctl is the operator CLI for the appeal lifecycle engine.
package main

import "github.com/caseworks/appeal-engine/internal/interfaces/cli"

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
	cli.Execute()
}
