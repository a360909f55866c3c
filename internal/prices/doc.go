// Package prices loads day-ahead electricity market prices and decides
// whether the current quarter-hour is cheap enough to run the relay.
//
// The day-ahead market publishes one price per quarter-hour period,
// numbered 1..96 within the trading day. The fetcher downloads the table
// from the OTE market-data endpoint and writes it to a local CSV cache;
// actuation cycles read only the cache, so a missed download degrades to
// yesterday's file rather than an outage. Period resolution applies a
// small forward clock skew so a cycle started just before a boundary
// prices the period it is actually switching for.
package prices
