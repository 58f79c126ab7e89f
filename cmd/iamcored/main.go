// Command iamcored is the IAM core's service entrypoint. It wires
// pkg.PericarpModule's generic bus/middleware/infrastructure layers
// together with internal/command's aggregate command engines and the two
// event-sourcing kernels (internal/eventlog for pkg/domain aggregates,
// internal/ddstore for the pkg/ddd webhook subsystem), the way the
// teacher's cmd/demo wired its own (now superseded) demo stack over
// pkg.PericarpModule.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/nexusiam/core/internal/command"
	"github.com/nexusiam/core/internal/ddstore"
	"github.com/nexusiam/core/internal/domain/crypto"
	"github.com/nexusiam/core/internal/eventlog"
	"github.com/nexusiam/core/internal/logging"
	"github.com/nexusiam/core/internal/query"
	"github.com/nexusiam/core/pkg"
	"github.com/nexusiam/core/pkg/domain"
	esdomain "github.com/nexusiam/core/pkg/eventsourcing/domain"
	"github.com/nexusiam/core/pkg/infrastructure"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// iamModule provides the IAM-specific layer on top of pkg.PericarpModule:
// it decorates the generic Logger with a logrus-backed one, reuses
// PericarpModule's *gorm.DB, and adds the write-side stores and every
// aggregate's command engine.
var iamModule = fx.Options(
	fx.Decorate(IAMLoggerProvider),
	fx.Provide(
		EventLogStoreProvider,
		DDStoreProvider,
		CryptoStoreProvider,
		QueryServiceProvider,
		FedAuthHTTPClientProvider,
		FedAuthCookieKeysProvider,

		command.NewUserCommands,
		command.NewOrgCommands,
		command.NewInstanceCommands,
		command.NewProjectCommands,
		command.NewPolicyCommands,
		command.NewIDPCommands,
		command.NewCryptoCommands,
		command.NewWebhookCommands,
		command.NewFedAuthCommands,
	),
	fx.Invoke(registerServiceLifecycle),
)

// IAMLoggerProvider replaces PericarpModule's simpleLogger (pkg/infrastructure)
// with a logrus-backed one for the IAM service, the way a deployment wanting
// logrus's structured fields and hooks would decorate the generic default.
func IAMLoggerProvider(config *infrastructure.Config) domain.Logger {
	return logging.New(config.Logging.Level, config.Logging.Format)
}

// EventLogStoreProvider builds the first kernel's Store, backing every
// pkg/domain.Entity aggregate (user/org/instance/project/policy/idp).
func EventLogStoreProvider(db *gorm.DB) (eventlog.Store, error) {
	return eventlog.NewGormStore(db)
}

// DDStoreProvider builds the second kernel's EventStore, backing the
// pkg/ddd webhook action/target/execution subsystem.
func DDStoreProvider(db *gorm.DB) (esdomain.EventStore, error) {
	return ddstore.NewGormStore(db)
}

// CryptoStoreProvider builds the non-event-sourced key-material store
// behind PAT digests and webhook signing keys.
func CryptoStoreProvider(db *gorm.DB) (crypto.Store, error) {
	return crypto.NewGormStore(db)
}

// QueryServiceProvider builds the query layer every command engine that
// needs cross-aggregate reads depends on instead of touching eventlog.Store
// directly (spec.md §2). No point-lookup projection is wired in yet, so
// Lookup returns query.ErrNoLookupConfigured until a Bigtable client is
// provisioned for this deployment.
func QueryServiceProvider(store eventlog.Store) *query.Service {
	return query.NewService(store)
}

// FedAuthHTTPClientProvider builds the outbound HTTP client
// FedAuthCommands uses for token exchange, userinfo, and JWKS fetches
// against configured IDPs, with a bounded per-request timeout so a slow
// provider cannot stall a command indefinitely past the caller's deadline.
func FedAuthHTTPClientProvider(config *infrastructure.Config) *http.Client {
	return &http.Client{Timeout: time.Duration(config.FederatedAuth.HTTPTimeoutSeconds) * time.Second}
}

// FedAuthCookieKeysProvider mints the hash/block keys for the OAuth state
// round-trip cookie at startup. Keys are process-lifetime: a restart
// invalidates any in-flight intent's cookie, which only forces the relying
// party to retry the authorization request.
func FedAuthCookieKeysProvider() (command.CookieKeys, error) {
	hashKey, err := crypto.GenerateKey(32)
	if err != nil {
		return command.CookieKeys{}, err
	}
	blockKey, err := crypto.GenerateKey(32)
	if err != nil {
		return command.CookieKeys{}, err
	}
	return command.CookieKeys{HashKey: hashKey, BlockKey: blockKey}, nil
}

func registerServiceLifecycle(lc fx.Lifecycle, logger domain.Logger, db *gorm.DB) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("iamcored started", "kernels", "eventlog+ddstore")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("iamcored stopping")
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
}

func main() {
	pkg.RunApp(iamModule)
}
