package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/whalewatch/config"
	"gopkg.in/yaml.v3"
)

// DefaultFile is where the wizard writes its result.
const DefaultFile = "config.gen.yaml"

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// answers holds the raw wizard input.
type answers struct {
	minValue    string
	concurrency string
	rate        string
	interval    string
	addr        string
	dataDir     string
}

func defaultAnswers() answers {
	d := config.Default()
	return answers{
		minValue:    d.MinValue.String(),
		concurrency: strconv.Itoa(d.Concurrency),
		rate:        strconv.FormatFloat(d.RatePerSecond, 'f', -1, 64),
		interval:    d.ScanInterval.String(),
		addr:        d.Addr,
		dataDir:     d.DataDir,
	}
}

// RunTUI launches the terminal configuration wizard and returns the path of the written file.
func RunTUI() (string, error) {
	a := defaultAnswers()
	var confirm bool

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("WHALEWATCH CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Pick which whales to follow and how hard to poll.\n"))

	fmt.Println(stepStyle.Render("STEP 1: WHALES"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Minimum account value (USD)").
				Description("Leaderboard accounts below this are ignored").
				Value(&a.minValue).
				Validate(validateMinValue),
		),
	).Run()
	if err != nil {
		return "", err
	}

	fmt.Println(stepStyle.Render("STEP 2: POLLING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Concurrent fetches").
				Value(&a.concurrency).
				Validate(validateConcurrency),
			huh.NewInput().
				Title("Requests per second").
				Value(&a.rate).
				Validate(validateRate),
			huh.NewInput().
				Title("Scan interval").
				Description("e.g. 5m, 90s").
				Value(&a.interval).
				Validate(validateInterval),
		),
	).Run()
	if err != nil {
		return "", err
	}

	fmt.Println(stepStyle.Render("STEP 3: OUTPUT"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Web feed address").
				Description("host:port for the HTTP feed").
				Value(&a.addr).
				Validate(validateNonEmpty),
			huh.NewInput().
				Title("Ledger data directory").
				Value(&a.dataDir).
				Validate(validateNonEmpty),
		),
	).Run()
	if err != nil {
		return "", err
	}

	summary := fmt.Sprintf(
		"Min value: %s\nConcurrency: %s\nRate: %s/s\nInterval: %s\nAddr: %s\nData dir: %s\n",
		a.minValue, a.concurrency, a.rate, a.interval, a.addr, a.dataDir,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save and start").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return "", err
	}
	if !confirm {
		return "", fmt.Errorf("setup cancelled by user")
	}

	tmp, err := a.toConfig()
	if err != nil {
		return "", err
	}
	if err := write(DefaultFile, tmp); err != nil {
		return "", err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s\nStarting scanner...", DefaultFile)))
	time.Sleep(1500 * time.Millisecond)
	return DefaultFile, nil
}

func (a answers) toConfig() (config.ConfigTmp, error) {
	for _, check := range []struct {
		value string
		fn    func(string) error
	}{
		{a.minValue, validateMinValue},
		{a.concurrency, validateConcurrency},
		{a.rate, validateRate},
		{a.interval, validateInterval},
		{a.addr, validateNonEmpty},
		{a.dataDir, validateNonEmpty},
	} {
		if err := check.fn(check.value); err != nil {
			return config.ConfigTmp{}, err
		}
	}

	cfg := config.Default()
	cfg.MinValue, _ = decimal.NewFromString(a.minValue)
	cfg.Concurrency, _ = strconv.Atoi(a.concurrency)
	cfg.RatePerSecond, _ = strconv.ParseFloat(a.rate, 64)
	cfg.ScanInterval, _ = time.ParseDuration(a.interval)
	cfg.Addr = a.addr
	cfg.DataDir = a.dataDir

	return cfg.ToTmp(), nil
}

func write(path string, tmp config.ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func validateMinValue(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateConcurrency(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("must be a whole number")
	}
	if n < 1 || n > 64 {
		return fmt.Errorf("must be between 1 and 64")
	}
	return nil
}

func validateRate(s string) error {
	r, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if r <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateInterval(s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("must be a duration like 5m")
	}
	if d <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateNonEmpty(s string) error {
	if s == "" {
		return fmt.Errorf("must not be empty")
	}
	return nil
}
