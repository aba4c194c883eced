// Package api implements the HTTP REST API and WebSocket server for the
// item provider.
//
// This package provides:
//   - read endpoints over the published item model (items, datapoints,
//     listening items per group address, group members, default widgets)
//   - a reload endpoint and the reload history
//   - a WebSocket hub broadcasting "items.changed" after every swap
//   - the middleware stack (request ID, logging, recovery, CORS)
//
// Every request reads one immutable snapshot from the provider, so a
// response never mixes items from two different loads.
//
// Parse failures on reload are reported as 422 validation_error with the
// failing line and error kind.
package api
