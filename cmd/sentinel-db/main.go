// sentinel-db inspects how SQL statements are reported as telemetry spans.
package main

import (
	"fmt"
	"os"

	"github.com/kroma-labs/sentinel-db/cmd/sentinel-db/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
