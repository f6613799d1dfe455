package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/lyzr/flowrunner/cmd/workflow-runner/codec"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/condition"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/durable"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/engine"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/invoker"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/nodes"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/resources"
	"github.com/lyzr/flowrunner/cmd/workflow-runner/routes"
	"github.com/lyzr/flowrunner/common/bootstrap"
	"github.com/lyzr/flowrunner/common/clients"
	"github.com/lyzr/flowrunner/common/credits"
	"github.com/lyzr/flowrunner/common/middleware"
	"github.com/lyzr/flowrunner/common/monitor"
	"github.com/lyzr/flowrunner/common/ratelimit"
	"github.com/lyzr/flowrunner/common/repository"
	"github.com/lyzr/flowrunner/common/sdk"
	"github.com/lyzr/flowrunner/common/server"
	"github.com/lyzr/flowrunner/common/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap service components
	components, err := bootstrap.Setup(ctx, "workflow-runner")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup service: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	components.Logger.Info("workflow-runner starting")

	if components.Config.Service.PprofPort > 0 {
		telemetry.New(components.Config.Service.PprofPort, components.Logger).Start()
	}

	coordinator, store := buildEngine(components)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())

	var extra []echo.MiddlewareFunc
	if components.Redis != nil && components.Config.RateLimit.Enabled {
		limiter := ratelimit.NewLimiter(components.Redis, components.Logger)
		rl := components.Config.RateLimit
		extra = append(extra, middleware.SubmitRateLimit(limiter, rl.GlobalLimit, rl.OrgLimit, rl.WindowSeconds))
	}
	routes.RegisterExecutionRoutes(e, coordinator, store, components.Logger, extra...)

	srv := server.New("workflow-runner", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server stopped", "error", err)
		os.Exit(1)
	}

	components.Logger.Info("workflow-runner shutting down gracefully")
}

// buildEngine wires the execution engine. Redis and Postgres backends are
// used when configured; everything falls back to in-memory implementations
// so the service runs standalone in development.
func buildEngine(components *bootstrap.Components) (*engine.Coordinator, sdk.ExecutionStore) {
	cfg := components.Config
	log := components.Logger

	var (
		steps      sdk.StepStore
		blobs      sdk.ObjectStore
		monitoring sdk.MonitoringService
		gate       sdk.CreditGate
	)
	if components.Redis != nil {
		steps = durable.NewRedisStepStore(components.Redis, log)
		blobs = clients.NewRedisObjectStore(components.Redis, log)
		monitoring = monitor.NewRedisPublisher(components.Redis, log)
		gate = credits.NewRedisGate(&credits.GateOpts{
			Redis:   components.Redis,
			Logger:  log,
			DevMode: cfg.Credits.DevMode,
		})
	} else {
		log.Warn("redis disabled, using in-memory step and object stores")
		steps = durable.NewMemoryStepStore()
		blobs = clients.NewMemoryObjectStore()
		monitoring = monitor.NewMemoryRecorder()
		gate = credits.NewMemoryGate(nil)
	}

	var store sdk.ExecutionStore
	if components.DB != nil {
		store = repository.NewExecutionRepository(components.DB)
	} else {
		log.Warn("database disabled, execution records are kept in memory")
		store = repository.NewMemoryExecutionStore()
	}

	registry := nodes.NewRegistry(condition.NewEvaluator())

	provider := resources.NewProvider(&resources.Opts{
		Secrets:      resources.StaticSecrets{},
		Integrations: resources.StaticIntegrations{},
		Logger:       log,
	})
	catalogue := resources.NewToolCatalogue(registry, registry.Types())
	catalogue.Bind(func(ctx context.Context, nodeType string, inputs map[string]interface{}) (*sdk.InvocationContext, error) {
		return provider.CreateNodeContext(ctx, sdk.NodeContextParams{
			NodeID: "tool:" + nodeType,
			Inputs: inputs,
		})
	})
	provider.SetToolRegistry(catalogue)

	executor := engine.NewLevelExecutor(&engine.ExecutorOpts{
		Codec: codec.New(blobs),
		Invoker: invoker.New(&invoker.Opts{
			Registry:  registry,
			Resources: provider,
			Logger:    log,
		}),
		Logger:         log,
		MaxParallelism: cfg.Engine.MaxLevelParallelism,
	})

	coordinator := engine.NewCoordinator(&engine.CoordinatorOpts{
		Executor:    executor,
		Registry:    registry,
		Steps:       steps,
		Store:       store,
		Monitor:     monitoring,
		Credits:     gate,
		Resources:   provider,
		Logger:      log,
		StepTimeout: cfg.Engine.StepTimeout,
		StepRetries: cfg.Engine.StepRetries,
	})

	return coordinator, store
}
