// Package roster loads the whale roster from the Hyperliquid leaderboard.
package roster

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/whalewatch/internal/domain"
)

const (
	DefaultLeaderboardURL = "https://stats-data.hyperliquid.xyz/Mainnet/leaderboard"
	defaultTimeout        = 30 * time.Second
)

// AnonymousValueCap accounts above this value without a display name are treated as bad data.
var AnonymousValueCap = decimal.NewFromInt(1_000_000_000)

type leaderboardRow struct {
	EthAddress         string              `json:"ethAddress"`
	AccountValue       string              `json:"accountValue"`
	DisplayName        *string             `json:"displayName"`
	WindowPerformances [][]json.RawMessage `json:"windowPerformances"`
}

type leaderboardResponse struct {
	LeaderboardRows []leaderboardRow `json:"leaderboardRows"`
}

// Client fetches the leaderboard.
type Client struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// Option configures Client.
type Option func(*Client)

// WithURL overrides the leaderboard endpoint.
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a leaderboard client.
func New(opts ...Option) *Client {
	c := &Client{
		url:    DefaultLeaderboardURL,
		client: &http.Client{Timeout: defaultTimeout},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads and parses every leaderboard row.
// Rows with an unparsable account value are skipped.
func (c *Client) Fetch(ctx context.Context) ([]domain.Whale, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build leaderboard request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch leaderboard")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Errorf("leaderboard returned HTTP %d", resp.StatusCode)
	}

	var payload leaderboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decode leaderboard")
	}

	whales := make([]domain.Whale, 0, len(payload.LeaderboardRows))
	for _, row := range payload.LeaderboardRows {
		w, err := parseRow(row)
		if err != nil {
			c.logger.Debug("skipping leaderboard row", zap.String("address", row.EthAddress), zap.Error(err))
			continue
		}
		whales = append(whales, w)
	}

	return whales, nil
}

func parseRow(row leaderboardRow) (domain.Whale, error) {
	if row.EthAddress == "" {
		return domain.Whale{}, errors.New("empty address")
	}
	value, err := decimal.NewFromString(row.AccountValue)
	if err != nil {
		return domain.Whale{}, errors.Wrapf(err, "account value %q", row.AccountValue)
	}

	w := domain.Whale{
		Address:      row.EthAddress,
		AccountValue: value,
	}
	if row.DisplayName != nil {
		w.DisplayName = strings.TrimSpace(*row.DisplayName)
	}
	w.WindowPerformances = parseWindows(row.WindowPerformances)

	return w, nil
}

// parseWindows reads [["day", {"pnl": "...", ...}], ...]; malformed pairs are ignored.
func parseWindows(raw [][]json.RawMessage) map[domain.Window]domain.WindowPerformance {
	if len(raw) == 0 {
		return nil
	}

	out := make(map[domain.Window]domain.WindowPerformance, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		var window string
		if err := json.Unmarshal(pair[0], &window); err != nil {
			continue
		}
		var perf domain.WindowPerformance
		if err := json.Unmarshal(pair[1], &perf); err != nil {
			continue
		}
		out[domain.Window(window)] = perf
	}
	return out
}

// Select keeps whales worth at least minValue, drops anonymous accounts above
// AnonymousValueCap and sorts the rest by account value, largest first.
func Select(whales []domain.Whale, minValue decimal.Decimal) []domain.Whale {
	out := make([]domain.Whale, 0, len(whales))
	for _, w := range whales {
		if w.AccountValue.LessThan(minValue) {
			continue
		}
		if w.AccountValue.GreaterThan(AnonymousValueCap) && !w.HasDisplayName() {
			continue
		}
		out = append(out, w)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AccountValue.GreaterThan(out[j].AccountValue)
	})
	return out
}
