// Package schedule computes and waits for the session start marks.
//
// Sessions start at a fixed minute of each hour (X:45 by default), chosen
// so the first run prices the quarter-hour beginning at the top of the
// next hour once the period skew is applied.
package schedule
