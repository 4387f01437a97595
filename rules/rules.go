//go:build ruleguard

// Package gorules holds the ruleguard checks run by golangci-lint.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// HTTPNoBody flags bodiless requests built with a nil body.
//
//	http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
//
// should pass http.NoBody, which tells the transport the request
// carries no body without a nil check downstream.
func HTTPNoBody(m dsl.Matcher) {
	m.Match(
		`http.NewRequestWithContext($ctx, $method, $url, nil)`,
	).
		Report("use http.NoBody instead of nil for requests without a body").
		Suggest("http.NewRequestWithContext($ctx, $method, $url, http.NoBody)")

	m.Match(
		`http.NewRequest($method, $url, nil)`,
		`httptest.NewRequest($method, $url, nil)`,
	).
		Report("use http.NoBody instead of nil for requests without a body")
}

// JoinHostPort flags listen addresses built with fmt.Sprintf, which breaks
// on IPv6 hosts.
func JoinHostPort(m dsl.Matcher) {
	m.Match(
		`fmt.Sprintf("%s:%d", $host, $port)`,
		`fmt.Sprintf("%v:%d", $host, $port)`,
	).
		Report("use net.JoinHostPort($host, strconv.Itoa($port)) instead of fmt.Sprintf for host:port")
}

// DeferredTimeSince flags durations that are evaluated when the defer
// statement runs rather than at function exit.
func DeferredTimeSince(m dsl.Matcher) {
	m.Match(
		`defer $fn(time.Since($start))`,
		`defer $fn(time.Since($start), $*_)`,
		`defer $fn($*_, time.Since($start))`,
	).
		Report("time.Since($start) is evaluated at defer time; wrap the call in func()")
}

// WaitGroupGo prefers sync.WaitGroup.Go over manual Add/Done pairs (Go 1.25+).
func WaitGroupGo(m dsl.Matcher) {
	m.Match(`$wg.Add(1); go func() { defer $wg.Done(); $*body }()`).
		Where(m["wg"].Type.Is("sync.WaitGroup") || m["wg"].Type.Is("*sync.WaitGroup")).
		Report("use $wg.Go(func() { ... })").
		Suggest("$wg.Go(func() { $body })")
}

// MinMaxBuiltin prefers the min and max builtins over math.Min/Max round trips
// through float64.
func MinMaxBuiltin(m dsl.Matcher) {
	m.Match(`int(math.Min(float64($a), float64($b)))`).
		Report("use min($a, $b)").
		Suggest("min($a, $b)")

	m.Match(`int(math.Max(float64($a), float64($b)))`).
		Report("use max($a, $b)").
		Suggest("max($a, $b)")
}

// TestingContext prefers t.Context() in tests so work is cancelled when the
// test ends (Go 1.24+).
func TestingContext(m dsl.Matcher) {
	m.Match(
		`$ctx := context.Background()`,
		`$fn(context.Background(), $*_)`,
	).
		Where(m.File().Name.Matches(`_test\.go$`)).
		Report("in tests, use t.Context() instead of context.Background()")
}
