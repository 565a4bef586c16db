package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquamarinepk/aqm"
	"github.com/aquamarinepk/aqm/middleware"

	"github.com/appetiteclub/boardsync/internal/filter"
	"github.com/appetiteclub/boardsync/internal/order"
	"github.com/appetiteclub/boardsync/internal/stream"
	"github.com/appetiteclub/boardsync/internal/subscription"
	"github.com/appetiteclub/boardsync/internal/web"
)

const (
	appNamespace = "BOARDSYNC"
	appName      = "boardsync"
	appVersion   = "0.1.0"
)

func main() {
	config, err := aqm.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	restaurantID, _ := config.GetString("board.restaurant_id")
	if restaurantID == "" {
		log.Fatalf("board.restaurant_id is required")
	}

	// REST collaborator for warm loads, fetch-on-miss and mutations.
	orderURL, _ := config.GetString("services.order.url")
	orderData := order.NewDataAccess(aqm.NewServiceClient(orderURL))

	// Orders push channel.
	channelURL, _ := config.GetString("channel.orders_url")
	token, _ := config.GetString("channel.auth_token")
	conn := stream.NewConn(channelURL, "orders", logger, stream.Options{
		Credentials: stream.NewStaticCredentials(token),
	})

	store := order.NewStore()
	engine := filter.NewEngine(filter.State{})

	reconciler := order.NewReconciler(store, orderData, engine, logger)
	reconciler.Bind(conn)

	registry := subscription.NewRegistry(conn, order.EventSubscribe, func(target string, filters *filter.Set) interface{} {
		return order.SubscribePayload{RestaurantID: target, Filters: filters}
	}, logger)

	// First connect announces interest and warms the collection; every
	// reconnect re-announces because the server has forgotten us.
	conn.OnConnect(func() {
		if err := registry.Subscribe(restaurantID, filter.BuildSet(engine.State())); err != nil {
			logger.Error("initial subscription failed", "error", err)
		}
		if err := reconciler.Warm(ctx, restaurantID); err != nil {
			logger.Error("initial order load failed", "error", err)
		}
	})
	conn.OnReconnect(registry.Resend)

	handler := web.NewHandler(reconciler, registry, restaurantID, conn.State, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: false,
	})

	options := []aqm.Option{
		aqm.WithConfig(config),
		aqm.WithLogger(logger),
		aqm.WithHTTPMiddleware(stack...),
		aqm.WithHTTPServerModules("web.port", handler),
		aqm.WithLifecycle(conn),
		aqm.WithHealthChecks(appName),
	}

	ms := aqm.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
