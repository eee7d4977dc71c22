package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spacetimedb-go/core/internal/abihost"
	"github.com/spacetimedb-go/core/internal/config"
	"github.com/spacetimedb-go/core/internal/datastore"
	"github.com/spacetimedb-go/core/internal/eval"
	"github.com/spacetimedb-go/core/internal/obslog"
)

// main boots a datastore, attaches the module ABI host, and runs a
// handful of SQL statements against it so the wiring between
// internal/datastore, internal/eval and internal/abihost can be seen
// end to end without a WASM guest module.
func main() {
	logger := obslog.New(os.Stdout, obslog.Info)
	cfg := config.New(
		config.WithABIVersion(10),
		config.WithMemoryLimitPages(1000),
	)

	store := datastore.New()
	host, err := abihost.NewHost(store, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start module ABI host: %v\n", err)
		os.Exit(1)
	}
	defer host.Close(context.Background())

	logger.Infof("spacetimedb core started (abi version %d)", cfg.ABIVersion)

	tables, err := eval.RunSQL(store, `
		CREATE TABLE greeting (id INT, message TEXT);
		INSERT INTO greeting (id, message) VALUES (1, 'hello from spacetimedb-go');
		SELECT * FROM greeting;
	`)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap query failed: %v\n", err)
		os.Exit(1)
	}
	for _, t := range tables {
		for _, row := range t.Rows {
			logger.Infof("greeting row: %v", row)
		}
	}
}
