package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/davidleathers/identity-audit-engine/internal/identitymock"
	"github.com/davidleathers/identity-audit-engine/internal/infrastructure/telemetry"
)

// identitymock serves a synthetic identity dataset over the data source
// contract, for local development and demos of the audit engine.
func main() {
	var (
		port  = flag.Int("port", 8082, "Listen port")
		count = flag.Int("count", 200, "Number of identities to generate")
		seed  = flag.Int64("seed", 42, "Generator seed; same seed, same dataset")
	)
	flag.Parse()

	logger, err := telemetry.SetupLogger("info", "development")
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	defer logger.Sync()

	dataset := identitymock.Generate(*count, *seed)
	store := identitymock.NewStore(dataset)
	server := identitymock.NewServer(store, logger)

	identities, accessRecords := store.Counts()
	logger.Info("serving synthetic identity data",
		zap.Int("port", *port),
		zap.Int("identities", identities),
		zap.Int("access_records", accessRecords),
		zap.Int64("seed", *seed))

	addr := fmt.Sprintf(":%d", *port)
	if err := http.ListenAndServe(addr, server.Handler()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
