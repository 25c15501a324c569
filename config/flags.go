package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Options are command flags that are not part of Config itself plus the
// raw values of flags that override it.
type Options struct {
	ConfigPath string
	Setup      bool

	set         map[string]bool
	minValue    string
	concurrency int
	rate        float64
	interval    time.Duration
	once        bool
	addr        string
	dataDir     string
}

func parseFlags(args []string) (Options, error) {
	var o Options

	fs := flag.NewFlagSet("whalewatch", flag.ContinueOnError)
	fs.StringVar(&o.ConfigPath, "config", "", "path to yaml config")
	fs.BoolVar(&o.Setup, "setup", false, "run the interactive configuration wizard")
	fs.StringVar(&o.minValue, "min-value", "", "minimum account value to track, example: 2500000")
	fs.IntVar(&o.concurrency, "concurrency", DefaultConcurrency, "max snapshot fetches in flight")
	fs.Float64Var(&o.rate, "rate", DefaultRatePerSecond, "max info API requests per second")
	fs.DurationVar(&o.interval, "interval", DefaultScanInterval, "pause between scan cycles")
	fs.BoolVar(&o.once, "once", false, "run a single scan and exit")
	fs.StringVar(&o.addr, "addr", DefaultAddr, "web feed listen address, empty disables it")
	fs.StringVar(&o.dataDir, "data-dir", DefaultDataDir, "ledger WAL directory")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	return o, nil
}

// apply copies explicitly set flags over cfg.
func (o Options) apply(cfg *Config) error {
	if o.set["min-value"] {
		v, err := decimal.NewFromString(o.minValue)
		if err != nil {
			return fmt.Errorf("invalid --min-value provided, --min-value=%s", o.minValue)
		}
		cfg.MinValue = v
	}
	if o.set["concurrency"] {
		cfg.Concurrency = o.concurrency
	}
	if o.set["rate"] {
		cfg.RatePerSecond = o.rate
	}
	if o.set["interval"] {
		cfg.ScanInterval = o.interval
	}
	if o.set["once"] {
		cfg.Once = o.once
	}
	if o.set["addr"] {
		cfg.Addr = o.addr
	}
	if o.set["data-dir"] {
		cfg.DataDir = o.dataDir
	}
	return nil
}
