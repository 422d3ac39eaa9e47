package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgchart/modules"
	"github.com/iota-uz/orgchart/modules/hierarchy/infrastructure/seed"
	"github.com/iota-uz/orgchart/modules/hierarchy/services"
	"github.com/iota-uz/orgchart/pkg/application"
	"github.com/iota-uz/orgchart/pkg/configuration"
	"github.com/iota-uz/orgchart/pkg/metrics"
	"github.com/iota-uz/orgchart/pkg/middleware"
	"github.com/iota-uz/orgchart/pkg/server"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	app, err := buildApplication(conf, logger)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}

	serverInstance := server.NewHTTPServer(app)
	logger.WithFields(logrus.Fields{
		"address":     conf.SocketAddress,
		"seed":        conf.Hierarchy.SeedPath,
		"search_mode": conf.Hierarchy.SearchMode,
	}).Info("hierarchy server listening")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serverInstance.Serve(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
	logger.Info("hierarchy server stopped")
}

func buildApplication(conf *configuration.Configuration, logger *logrus.Logger) (application.Application, error) {
	mode, _ := services.ParseSearchMode(conf.Hierarchy.SearchMode)
	store, err := seed.LoadStore(conf.Hierarchy.SeedPath, services.WithSearchMode(mode))
	if err != nil {
		return nil, err
	}
	store.ExpandToDepth(conf.Hierarchy.ExpandDepth)
	logger.WithField("positions", store.Len()).Info("hierarchy seed loaded")

	app := application.New(&application.ApplicationOptions{Logger: logger})
	app.RegisterMiddleware(
		middleware.WithLogger(logger),
		middleware.Cors(conf.CORS.AllowedOrigins...),
	)
	if err := modules.Load(app, modules.BuiltInModules(modules.Options{
		Store:          store,
		DefaultCascade: conf.Hierarchy.DefaultCascade,
	})...); err != nil {
		return nil, err
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path, nil))
	}
	return app, nil
}
