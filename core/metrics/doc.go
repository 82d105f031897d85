// Package metrics defines the sinks recording schedule fetches and rendered
// calendar views. Implementations live in infra/metrics and are created from
// configuration through the sink registry; NewMetricsSink returns a MultiSink
// when several sinks are configured.
package metrics
