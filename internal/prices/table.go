package prices

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// PeriodsPerDay is the number of quarter-hour trading periods in one day.
const PeriodsPerDay = 96

// csvHeader is the cache file header. The column names are kept stable so
// external tooling reading the cache keeps working.
var csvHeader = []string{"Ctvrthodina", "Cena (EUR/MWh)"}

// Table maps quarter-hour periods (1..96) to day-ahead prices in EUR/MWh.
type Table struct {
	prices map[int]float64
}

// NewTable creates an empty price table.
func NewTable() *Table {
	return &Table{prices: make(map[int]float64)}
}

// Set records the price for a period.
func (t *Table) Set(period int, price float64) {
	t.prices[period] = price
}

// Len returns the number of periods with a known price.
func (t *Table) Len() int {
	return len(t.prices)
}

// PriceAt returns the price for the given period.
//
// Returns:
//   - float64: Price in EUR/MWh
//   - error: ErrPeriodNotFound if the table has no entry for the period
func (t *Table) PriceAt(period int) (float64, error) {
	price, ok := t.prices[period]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrPeriodNotFound, period)
	}
	return price, nil
}

// PeriodAt resolves a wall-clock instant to its quarter-hour period.
//
// The skew is added before resolution: a cycle that fires at X:44:59 with
// a skew past the boundary prices the period it is switching for, not the
// one it happens to run in.
//
// Parameters:
//   - now: Local wall-clock time (caller picks the market timezone)
//   - skew: Forward clock adjustment
//
// Returns:
//   - int: Period number in 1..96
func PeriodAt(now time.Time, skew time.Duration) int {
	shifted := now.Add(skew)
	return shifted.Hour()*4 + shifted.Minute()/15 + 1
}

// Decide reports whether the period at the given instant prices below the
// limit.
//
// Parameters:
//   - now: Local wall-clock time
//   - skew: Forward clock adjustment for period resolution
//   - limit: Threshold in EUR/MWh, exclusive
//
// Returns:
//   - price: The period's price in EUR/MWh
//   - below: true if price < limit
//   - error: ErrPeriodNotFound if the table lacks the period
func (t *Table) Decide(now time.Time, skew time.Duration, limit float64) (price float64, below bool, err error) {
	period := PeriodAt(now, skew)
	price, err = t.PriceAt(period)
	if err != nil {
		return 0, false, err
	}
	return price, price < limit, nil
}

// Interval is a contiguous run of below-limit periods, inclusive on both
// ends.
type Interval struct {
	FromPeriod int
	ToPeriod   int
}

// Times returns the interval's wall-clock boundaries on the given day.
func (iv Interval) Times(day time.Time) (from, to time.Time) {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	from = midnight.Add(time.Duration(iv.FromPeriod-1) * 15 * time.Minute)
	to = midnight.Add(time.Duration(iv.ToPeriod) * 15 * time.Minute)
	return from, to
}

// BelowLimitIntervals returns the contiguous below-limit runs of the day
// in ascending period order.
//
// Parameters:
//   - limit: Threshold in EUR/MWh, exclusive
func (t *Table) BelowLimitIntervals(limit float64) []Interval {
	periods := make([]int, 0, len(t.prices))
	for p, price := range t.prices {
		if price < limit {
			periods = append(periods, p)
		}
	}
	sort.Ints(periods)

	var intervals []Interval
	for _, p := range periods {
		if n := len(intervals); n > 0 && intervals[n-1].ToPeriod == p-1 {
			intervals[n-1].ToPeriod = p
			continue
		}
		intervals = append(intervals, Interval{FromPeriod: p, ToPeriod: p})
	}
	return intervals
}

// LoadCSV reads a price table from the cache file.
//
// Parameters:
//   - path: Cache file path
//
// Returns:
//   - *Table: The loaded table
//   - error: ErrMalformedTable (wrapped) on parse failures; file errors as-is
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening price cache: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedTable, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: no data rows", ErrMalformedTable)
	}

	table := NewTable()
	for _, row := range records[1:] {
		if len(row) != 2 {
			return nil, fmt.Errorf("%w: row %v", ErrMalformedTable, row)
		}
		period, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%w: period %q", ErrMalformedTable, row[0])
		}
		price, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: price %q", ErrMalformedTable, row[1])
		}
		table.Set(period, price)
	}
	return table, nil
}

// SaveCSV writes the table to the cache file, replacing any previous day.
//
// The write is an atomic replace so a concurrent cycle never reads a
// half-written table.
//
// Parameters:
//   - path: Cache file path
func (t *Table) SaveCSV(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prices-*")
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	writer := csv.NewWriter(tmp)
	if err := writer.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache header: %w", err)
	}

	periods := make([]int, 0, len(t.prices))
	for p := range t.prices {
		periods = append(periods, p)
	}
	sort.Ints(periods)
	for _, p := range periods {
		row := []string{
			strconv.Itoa(p),
			strconv.FormatFloat(t.prices[p], 'f', 2, 64),
		}
		if err := writer.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("writing cache row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing cache file: %w", err)
	}
	return nil
}
