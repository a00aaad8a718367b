package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"simbridge/internal/config"
	"simbridge/internal/foreflight"
	"simbridge/internal/sim"
	"simbridge/internal/telemetry"
	"simbridge/internal/udp"
	"simbridge/internal/web"
)

// ingestLine builds the listener callback: parse one sentence and fold it
// into the store. Keep the listener healthy: never return errors for parse
// issues.
func ingestLine(store *telemetry.Store, status *web.Status) func(line []byte) error {
	return func(line []byte) error {
		s, err := foreflight.Parse(string(line))
		if err != nil {
			status.CountMalformed()
			log.Printf("udp: dropping malformed sentence: %v (%s)", err, truncate(string(line), 120))
			return nil
		}
		switch s.Kind {
		case foreflight.KindPosition:
			store.SetPosition(time.Now().UTC(), s.SimName, s.Position)
			status.CountPosition()
		case foreflight.KindAttitude:
			store.SetAttitude(time.Now().UTC(), s.SimName, s.Attitude)
			status.CountAttitude()
		default:
			status.CountUnknown()
			log.Printf("udp: ignoring unrecognized sentence (%s)", truncate(string(line), 120))
		}
		return nil
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// runBroadcast drives the feed: every interval, snapshot the store, refresh
// the status gauges, and push one frame to every connected client. With no
// clients it still ticks so status stays fresh, but skips the marshal.
func runBroadcast(ctx context.Context, interval time.Duration, store *telemetry.Store, feed *web.Feed, status *web.Status, listener *udp.Listener) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			nowUTC := now.UTC()
			snap := store.Snapshot()
			status.SetTelemetry(web.TelemetryStatusOf(snap))
			status.SetIngest(listener.Snapshot())
			clients := feed.ClientCount()
			status.SetClients(clients)

			if clients == 0 {
				status.MarkTick(nowUTC, 0)
				continue
			}
			payload, err := json.Marshal(telemetry.BuildFrame(snap))
			if err != nil {
				log.Printf("feed: frame marshal failed: %v", err)
				status.MarkTick(nowUTC, 0)
				continue
			}
			status.MarkTick(nowUTC, feed.Broadcast(payload))
		}
	}
}

// runSim injects synthetic sentences into the configured UDP destination,
// normally the bridge's own listener, so the whole pipeline can be exercised
// without a simulator on the network.
func runSim(ctx context.Context, cfg config.SimConfig, sender *udp.Sender) {
	flight := sim.Flight{
		CenterLatDeg: cfg.CenterLatDeg,
		CenterLonDeg: cfg.CenterLonDeg,
		AltFeet:      cfg.AltFeet,
		GroundKt:     cfg.GroundKt,
		RadiusNm:     cfg.RadiusNm,
		Period:       cfg.Period,
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := sender.Send(flight.Datagram(cfg.Name, now.UTC())); err != nil {
				log.Printf("sim: send failed: %v", err)
			}
		}
	}
}
