// Command streamload opens many concurrent subscriptions to the whalewatch
// scan stream and tallies the events received per type.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type tally struct {
	connected   atomic.Int64
	connectErrs atomic.Int64
	streamErrs  atomic.Int64

	mu     sync.Mutex
	events map[string]int64
}

func (t *tally) event(name string) {
	t.mu.Lock()
	t.events[name]++
	t.mu.Unlock()
}

func (t *tally) snapshot() (map[string]int64, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.events))
	var total int64
	for k, v := range t.events {
		out[k] = v
		total += v
	}
	return out, total
}

func main() {
	var (
		targetURL   string
		connections int
		duration    time.Duration
		rampUp      time.Duration
	)
	flag.StringVar(&targetURL, "url", "http://localhost:8080/scan/stream", "scan stream URL")
	flag.IntVar(&connections, "conns", 200, "number of concurrent subscribers")
	flag.DurationVar(&duration, "dur", 60*time.Second, "test duration (0 for until interrupted)")
	flag.DurationVar(&rampUp, "ramp", time.Second, "spread connection starts across this window")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if connections <= 0 {
		logger.Fatal("invalid conns", zap.Int("conns", connections))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     connections + 10,
			MaxIdleConnsPerHost: connections + 10,
			DisableCompression:  true,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	logger.Info("starting stream load",
		zap.String("url", targetURL),
		zap.Int("conns", connections),
		zap.Duration("duration", duration),
		zap.Duration("ramp", rampUp))

	t := &tally{events: make(map[string]int64)}
	start := time.Now()

	go report(ctx, t, start, logger)

	step := rampUp / time.Duration(connections)
	g := new(errgroup.Group)
	for i := 0; i < connections; i++ {
		if i > 0 && step > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(step):
			}
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			subscribe(ctx, client, targetURL, t)
			return nil
		})
	}
	_ = g.Wait()

	byType, total := t.snapshot()
	elapsed := time.Since(start)
	fmt.Printf("done: connected=%d connect_errs=%d stream_errs=%d events=%d %v elapsed=%s events/s=%.2f\n",
		t.connected.Load(), t.connectErrs.Load(), t.streamErrs.Load(),
		total, byType, elapsed.Truncate(time.Millisecond), float64(total)/elapsed.Seconds())
}

// subscribe reads one stream until ctx ends, counting "event:" lines by name.
func subscribe(ctx context.Context, client *http.Client, url string, t *tally) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.connectErrs.Add(1)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := client.Do(req)
	if err != nil {
		t.connectErrs.Add(1)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.connectErrs.Add(1)
		return
	}
	t.connected.Add(1)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event:"); ok {
			t.event(strings.TrimSpace(name))
		}
	}
	if ctx.Err() == nil {
		t.streamErrs.Add(1)
	}
}

func report(ctx context.Context, t *tally, start time.Time, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			byType, total := t.snapshot()
			logger.Info("status",
				zap.Int64("connected", t.connected.Load()),
				zap.Int64("connect_errs", t.connectErrs.Load()),
				zap.Int64("stream_errs", t.streamErrs.Load()),
				zap.Int64("events", total),
				zap.Any("by_type", byType),
				zap.Duration("elapsed", time.Since(start).Truncate(time.Second)))
		}
	}
}
