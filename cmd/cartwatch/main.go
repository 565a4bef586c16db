package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aquamarinepk/aqm"

	"github.com/appetiteclub/boardsync/internal/cart"
	"github.com/appetiteclub/boardsync/internal/filter"
	"github.com/appetiteclub/boardsync/internal/stream"
	"github.com/appetiteclub/boardsync/internal/subscription"
)

const (
	appName    = "cartwatch"
	appVersion = "0.1.0"
)

// cartwatch follows one cart session over the push channel and logs
// every snapshot with its highlighted items. Useful when poking at the
// bridge or the backend by hand.
func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	sessionID := os.Args[1]

	config, err := aqm.LoadConfig("CARTWATCH", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	channelURL, _ := config.GetString("channel.cart_url")
	if channelURL == "" {
		channelURL = "ws://localhost:8090/socket/cart"
	}

	conn := stream.NewConn(channelURL, "cart", logger, stream.Options{})

	sync := cart.NewSync(sessionID, logger)
	sync.Bind(conn)
	sync.OnChange(func(c *cart.Cart, highlighted []string) {
		logger.Info("cart updated",
			"session_id", c.SessionID,
			"items", len(c.Items),
			"guests", c.Guests,
			"total", c.Total,
			"highlighted", highlighted,
		)
	})

	registry := subscription.NewRegistry(conn, cart.EventSubscribe, func(target string, _ *filter.Set) interface{} {
		return cart.SubscribePayload{SessionID: target}
	}, logger)

	conn.OnConnect(func() {
		if err := registry.Subscribe(sessionID, nil); err != nil {
			logger.Error("cart subscription failed", "error", err)
		}
	})
	conn.OnReconnect(registry.Resend)

	if err := conn.Start(ctx); err != nil {
		log.Fatalf("cannot start cart channel: %v", err)
	}

	logger.Infof("%s(%s) watching session %s", appName, appVersion, sessionID)
	<-ctx.Done()

	sync.Unsubscribe()
	if err := conn.Stop(context.Background()); err != nil {
		logger.Error("channel shutdown failed", "error", err)
	}
}

func printUsage() {
	fmt.Printf("%s %s\n\n", appName, appVersion)
	fmt.Println("Usage:")
	fmt.Println("  cartwatch <session-id> [flags]")
}
