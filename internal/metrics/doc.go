// Package metrics exposes solver activity as Prometheus metrics.
//
// Each Collector owns its own registry, so several collectors (one per
// test, or one per CLI run) never collide on metric names. The CLI prints
// the registry in the text exposition format after a solve or a benchmark.
package metrics
