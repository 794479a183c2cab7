// Command cbpro queries the public Coinbase Pro market data API and can
// serve trade history as NDJSON over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
