// driversim replays a driver run against a live delivery: it walks a straight
// line from pickup to dropoff and posts a location report every interval.
// Useful for exercising the relay and websocket tracking end to end.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

type options struct {
	apiURL     string
	deliveryID string
	fromLon    float64
	fromLat    float64
	toLon      float64
	toLat      float64
	interval   time.Duration
	steps      int
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := pflag.NewFlagSet("driversim", pflag.ContinueOnError)
	fs.StringVar(&opts.apiURL, "api", "http://127.0.0.1:8080", "delivery service base URL")
	fs.StringVar(&opts.deliveryID, "delivery", "", "delivery id to report for (required)")
	fs.Float64Var(&opts.fromLon, "from-lon", 79.86, "start longitude")
	fs.Float64Var(&opts.fromLat, "from-lat", 6.92, "start latitude")
	fs.Float64Var(&opts.toLon, "to-lon", 79.90, "end longitude")
	fs.Float64Var(&opts.toLat, "to-lat", 6.95, "end latitude")
	fs.DurationVar(&opts.interval, "interval", 3*time.Second, "reporting interval")
	fs.IntVar(&opts.steps, "steps", 20, "number of reports from start to end")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.deliveryID == "" {
		return options{}, fmt.Errorf("--delivery is required")
	}
	if opts.steps < 2 {
		return options{}, fmt.Errorf("--steps must be at least 2")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("driversim: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil && ctx.Err() == nil {
		log.Fatalf("driversim: %v", err)
	}
}

func run(ctx context.Context, opts options) error {
	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf("%s/deliveries/%s/location", opts.apiURL, opts.deliveryID)

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for i := 0; i < opts.steps; i++ {
		frac := float64(i) / float64(opts.steps-1)
		lon := opts.fromLon + (opts.toLon-opts.fromLon)*frac
		lat := opts.fromLat + (opts.toLat-opts.fromLat)*frac

		if err := report(ctx, client, url, lon, lat); err != nil {
			log.Printf("report %d/%d failed: %v", i+1, opts.steps, err)
		} else {
			log.Printf("report %d/%d sent: [%.5f, %.5f]", i+1, opts.steps, lon, lat)
		}

		if i == opts.steps-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	log.Printf("run finished for delivery %s", opts.deliveryID)
	return nil
}

func report(ctx context.Context, client *http.Client, url string, lon, lat float64) error {
	body, err := json.Marshal(map[string]float64{"longitude": lon, "latitude": lat})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
