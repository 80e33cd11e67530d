// Package jcb provides access to the daily exchange rate tables published by JCB.
//
// # Source
//
// URL: https://www.jcb.jp/uploads/<YYYYMMDD>.csv
//
// A table is only considered published when the server answers the exact URL
// (redirects are not followed) with status 200 and a Content-Type of text/plain.
// Anything else, including the HTML maintenance pages served on non-business days,
// is reported as types.ErrRemoteUnavailable.
//
// # Format
//
// One row per currency, no header. Only three columns are used:
//
//	index 2: rate applied when the currency is the conversion origin
//	index 4: rate applied when the currency is the conversion target
//	index 5: the 3-letter currency code
//
// A malformed row fails the whole table with a *types.ParseError.
//
// # Prefetch
//
// DailySource plugs into the prefetch scheduler and polls for the current day's
// table, so conversions rarely have to wait on the remote source.
package jcb
