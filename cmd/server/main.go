/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the residence accounting ledger. Starts the HTTP
  server, prints statements, seeds demo data and writes config files.

COMMANDS:
  serve                      Start the HTTP API (and the reconciliation scheduler)
  report income              Accrual income statement
  report cash-flow           Cash flow statement
  report balance-sheet       Cash-basis balance sheet
  report reconcile           Cash flow vs balance sheet check
  report statements          All three for one residence
  seed --scenario ID         Load a demo scenario into a new residence
  config init                Write a default ledger.yaml

GLOBAL FLAGS:
  --config   Path to ledger.yaml (optional; defaults apply when absent)
  --db       SQLite database path, overrides database.path
             Use ":memory:" for an in-memory database
  --log-level, --log-format  Override logging.level / logging.format

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ledger serve --db ./data/ledger.db --addr :3000
  ledger seed --scenario full-year --period 2025
  ledger report income --period 2025 --residence 64b7f0c2a1e4d3b2c1a09f8e

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: ledger.yaml schema
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
