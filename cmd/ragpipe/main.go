// Command ragpipe indexes documents and answers questions about them.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/ragpipe/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragpipe/internal/app"
)

func main() {
	cli.SetBootstrap(app.Bootstrap)
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
