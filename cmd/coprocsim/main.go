// Command coprocsim is a bench coprocessor: it serves the command channel, advertises itself
// over mDNS and publishes its log lines to the redis bus.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coprocfleet/adapters/mdns"
	"coprocfleet/adapters/myredis"
	"coprocfleet/domain"
	"coprocfleet/handlers"
	"coprocfleet/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"
)

const publishTimeout = 2 * time.Second

func main() {
	// Initialize logger
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	level.Info(logger).Log("msg", "Starting coprocessor simulator")

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		level.Error(logger).Log("msg", "Failed to load configuration", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log(
		"msg", "Configuration loaded",
		"system_name", config.SystemName,
		"hostname", config.Hostname,
		"command_port", config.CommandPort,
		"pubsub_port", config.PubSubPort,
		"redis_addr", config.Redis.Addr,
	)

	// Log bus
	var hook handlers.EventHook
	var bus *myredis.PubSub
	if config.Redis.Addr != "" {
		redisClient, err := myredis.NewRedisUniversalClient(config.Redis.Addr, myredis.WithClientName("coprocsim-"+config.SystemName))
		if err != nil {
			level.Error(logger).Log("msg", "Failed to create Redis client", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			level.Error(logger).Log("msg", "Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		level.Info(logger).Log("msg", "Connected to Redis", "topic", config.LogTopic)

		bus = myredis.NewPubSub(redisClient, logger)
		defer bus.Close()
		hook = func(e domain.LogEnvelope) {
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			defer cancel()
			if err := bus.Publish(ctx, config.LogTopic, service.EncodeLogEnvelope(e)); err != nil {
				level.Warn(logger).Log("msg", "Failed to publish log line", "err", err)
			}
		}
	}

	// Command channel server
	var server *handlers.NodeServer
	{
		var opts []handlers.NodeServerOption
		if len(config.AcceptedProcesses) > 0 {
			opts = append(opts, handlers.WithAcceptedProcesses(config.AcceptedProcesses...))
		}
		if hook != nil {
			opts = append(opts, handlers.WithEventHook(hook))
		}
		server = handlers.NewNodeServer(config.SystemName, logger, opts...)
	}

	var e *echo.Echo
	{
		e = echo.New()
		e.HideBanner = true
		service.RegisterErrorHandler(e, logger)
		if err := handlers.RegisterHandlers(e, server); err != nil {
			level.Error(logger).Log("msg", "Failed to register handlers", "err", err)
			os.Exit(1)
		}
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf(":%d", config.CommandPort)
		level.Info(logger).Log("msg", "Starting HTTP server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "HTTP server error", "err", err)
		}
	}()

	// Advertise over mDNS
	advertisement, err := mdns.Advertise(mdns.Advertisement{
		SystemName:    config.SystemName,
		Hostname:      config.Hostname,
		HostnameLocal: strings.TrimSuffix(config.Hostname, ".local") + ".local",
		CommandPort:   config.CommandPort,
		PubSubPort:    config.PubSubPort,
	})
	if err != nil {
		level.Error(logger).Log("msg", "Failed to advertise over mDNS", "err", err)
		os.Exit(1)
	}
	defer advertisement.Shutdown()
	level.Info(logger).Log("msg", "Advertising", "service", domain.ServiceType)

	// Heartbeat
	stopHeartbeat := make(chan struct{})
	if hook != nil && config.Heartbeat > 0 {
		go func() {
			ticker := time.NewTicker(config.Heartbeat)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					hook(domain.LogEnvelope{
						Prefix:   "[DEBUG]",
						NodeName: config.SystemName,
						Message:  "running " + strings.Join(server.Status().Running, ","),
					})
				case <-stopHeartbeat:
					return
				}
			}
		}()
	}

	// Wait for interrupt signal
	<-quit
	close(stopHeartbeat)
	level.Info(logger).Log("msg", "Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "Error during server shutdown", "err", err)
	}

	level.Info(logger).Log("msg", "Server stopped")
}
