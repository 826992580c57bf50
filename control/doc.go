// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics, debug introspection and the HTTP admin
// endpoint for puki.
//
// Provides:
//   - YAML/env configuration with validation and a reloadable snapshot store
//   - Prometheus counters implementing the reactor's api.Observer
//   - Debug probe registration and state export
//   - A chi router serving /metrics, /healthz and /debug/*
package control
