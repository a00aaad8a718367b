package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"simbridge/internal/config"
	"simbridge/internal/telemetry"
	"simbridge/internal/udp"
	"simbridge/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./simbridge.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	// Mirror everything we log into the in-memory buffer behind /api/logs.
	logBuf := web.NewLogBuffer(2000)
	log.SetOutput(io.MultiWriter(os.Stderr, logBuf))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	mode := "live"
	if cfg.Sim.Enable {
		mode = "sim"
	}

	status := web.NewStatus()
	status.SetStatic(mode, cfg.UDP.Listen, cfg.Feed.Listen, cfg.Feed.Path, cfg.Feed.Interval.String())
	store := telemetry.NewStore()
	feed := web.NewFeed(cfg.Feed.WriteTimeout)

	listener, err := udp.NewListener(udp.ListenerConfig{
		Listen:           cfg.UDP.Listen,
		MaxDatagramBytes: cfg.UDP.MaxDatagramBytes,
	})
	if err != nil {
		log.Fatalf("udp listener init failed: %v", err)
	}
	if err := listener.Start(ctx, ingestLine(store, status)); err != nil {
		log.Fatalf("udp listen failed: %v", err)
	}
	defer listener.Close()

	// Bind before starting goroutines so a taken port is a startup error,
	// not a log line after the fact.
	ln, err := net.Listen("tcp", cfg.Feed.Listen)
	if err != nil {
		log.Fatalf("web listen failed: %v", err)
	}

	log.Printf("simbridge starting")
	log.Printf("udp listen=%s feed=ws://%s%s interval=%s", cfg.UDP.Listen, cfg.Feed.Listen, cfg.Feed.Path, cfg.Feed.Interval)

	go func() {
		err := web.Serve(ctx, ln, status, logBuf, feed, cfg.Feed.Path)
		if err != nil && ctx.Err() == nil {
			log.Printf("web server stopped: %v", err)
			cancel()
		}
	}()

	go runBroadcast(ctx, cfg.Feed.Interval, store, feed, status, listener)

	if cfg.Sim.Enable {
		sender, err := udp.NewSender(cfg.Sim.Dest)
		if err != nil {
			log.Fatalf("sim sender init failed: %v", err)
		}
		defer sender.Close()
		log.Printf("sim enabled name=%s dest=%s interval=%s", cfg.Sim.Name, cfg.Sim.Dest, cfg.Sim.Interval)
		go runSim(ctx, cfg.Sim, sender)
	}

	<-ctx.Done()
	feed.CloseAll()
	log.Printf("simbridge stopping")
}
