// Command admin is the operator tool for elimu: schema migrations, school
// and principal provisioning, password resets and token housekeeping.
package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := newRootCommand(newCLI(os.Stdout)).Execute(); err != nil {
		slog.Error("admin command failed", "error", err)
		os.Exit(1)
	}
}
