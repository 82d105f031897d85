// Package infra contains technical adapters: the scheduler HTTP client,
// view caches, MQTT publishing, metrics exporters and Sentry monitoring.
// These packages should depend only on the interfaces defined in the core
// packages.
package infra
