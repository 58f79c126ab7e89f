package pkg

import (
	"github.com/nexusiam/core/pkg/application"
	"github.com/nexusiam/core/pkg/domain"
	"github.com/nexusiam/core/pkg/infrastructure"
	"go.uber.org/fx"
)

// Module is an alias for PericarpModule for convenience
var Module = PericarpModule

// PericarpModule combines the generic bus/middleware/infrastructure layers.
// The IAM-specific wiring lives in cmd/iamcored, which composes this with
// internal/command, internal/eventlog and internal/domain/*.
var PericarpModule = fx.Options(
	domain.DomainModule,
	application.ApplicationModule,
	infrastructure.InfrastructureModule,
)

// NewApp creates a new Fx application with all Pericarp modules
func NewApp(additionalOptions ...fx.Option) *fx.App {
	options := []fx.Option{PericarpModule}
	options = append(options, additionalOptions...)
	
	return fx.New(options...)
}

// RunApp creates and runs a new Fx application with graceful shutdown
func RunApp(additionalOptions ...fx.Option) {
	app := NewApp(additionalOptions...)
	app.Run()
}