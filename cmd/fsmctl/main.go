// Command fsmctl validates and renders state machine manifests and inspects
// snapshots held in a configured store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/amp-labs/amp-fsm/config"
	"github.com/amp-labs/amp-fsm/shutdown"
)

func main() {
	ctx := shutdown.SetupHandler(context.Background())

	err := newRootCommand(config.Load).ExecuteContext(ctx)

	// Runs the registered cleanup even when the command failed.
	shutdown.Shutdown()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
