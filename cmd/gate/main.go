// Command gate serves the agency API behind the request gate: per-route rate
// limits, bearer token verification and role checks.
//
// Configuration comes from the environment, optionally seeded from a .env
// file in the working directory. See internal/gate/app.Config for the keys.
package main

import (
	"fmt"
	"os"

	"github.com/aussiebroadwan/agency/internal/gate/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	application, err := app.New(app.LoadConfig())
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return application.Run()
}
