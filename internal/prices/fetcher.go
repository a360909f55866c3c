package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// datePlaceholder is the literal substring in SourceURL that gets replaced
// with the target trading day. It doubles as the substitution's date layout.
const datePlaceholder = "2006-01-02"

// FetcherConfig collects the constructor parameters for a Fetcher.
type FetcherConfig struct {
	// SourceURL is the market-data endpoint. The literal placeholder
	// 2006-01-02 in the URL is replaced with the target trading day at
	// fetch time.
	SourceURL string

	// MaxAttempts is the download retry budget.
	MaxAttempts int

	// RetryDelay is the pause between download attempts.
	RetryDelay time.Duration

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration
}

// Fetcher downloads the day-ahead price table from the market operator.
//
// The endpoint serves the daily chart data as JSON; the price line carries
// one point per quarter-hour period.
type Fetcher struct {
	cfg    FetcherConfig
	client *http.Client
	logger Logger
}

// NewFetcher creates a fetcher.
//
// Parameters:
//   - cfg: Download parameters
//   - logger: Logger instance (nil for no logging)
func NewFetcher(cfg FetcherConfig, logger Logger) *Fetcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// chartData mirrors the relevant slice of the market-data JSON payload.
type chartData struct {
	Data struct {
		DataLine []struct {
			Title string `json:"title"`
			Point []struct {
				X string  `json:"x"`
				Y float64 `json:"y"`
			} `json:"point"`
		} `json:"dataLine"`
	} `json:"data"`
}

// Fetch downloads the price table for the given trading day, retrying on
// failure with a fixed delay between attempts.
//
// Parameters:
//   - ctx: Context; cancellation aborts between attempts
//   - day: Trading day the table is requested for
//
// Returns:
//   - *Table: The downloaded table
//   - error: ErrFetchFailed (wrapped with the last cause) after the budget
//     is spent, or ctx.Err() on cancellation
func (f *Fetcher) Fetch(ctx context.Context, day time.Time) (*Table, error) {
	endpoint := strings.ReplaceAll(f.cfg.SourceURL, datePlaceholder, day.Format(datePlaceholder))

	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		table, err := f.fetchOnce(ctx, endpoint)
		if err == nil {
			f.logger.Info("price table downloaded",
				"day", day.Format("2006-01-02"),
				"periods", table.Len(),
				"attempt", attempt,
			)
			return table, nil
		}
		lastErr = err

		f.logger.Warn("price download attempt failed",
			"attempt", attempt,
			"max_attempts", f.cfg.MaxAttempts,
			"error", err,
		)

		if attempt < f.cfg.MaxAttempts {
			select {
			case <-time.After(f.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrFetchFailed, f.cfg.MaxAttempts, lastErr)
}

func (f *Fetcher) fetchOnce(ctx context.Context, endpoint string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting price data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("price endpoint returned status %d", resp.StatusCode)
	}

	var payload chartData
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}

	return tableFromChart(payload)
}

// tableFromChart extracts the price line from the chart payload.
//
// The payload carries several data lines (price, traded volume); the price
// line is picked by its EUR/MWh title, falling back to the first line when
// titles are absent.
func tableFromChart(payload chartData) (*Table, error) {
	lines := payload.Data.DataLine
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no data lines", ErrMalformedTable)
	}

	idx := 0
	for i, line := range lines {
		if strings.Contains(line.Title, "EUR/MWh") {
			idx = i
			break
		}
	}

	table := NewTable()
	for _, point := range lines[idx].Point {
		period, err := strconv.Atoi(point.X)
		if err != nil {
			return nil, fmt.Errorf("%w: period %q", ErrMalformedTable, point.X)
		}
		table.Set(period, point.Y)
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("%w: empty price line", ErrMalformedTable)
	}
	return table, nil
}
