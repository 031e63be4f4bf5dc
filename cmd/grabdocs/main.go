// Command grabdocs uploads, classifies and indexes personal files and answers
// questions grounded in them.
package main

import (
	"os"

	"github.com/custodia-labs/grabdocs/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
