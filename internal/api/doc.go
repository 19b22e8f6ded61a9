// Package api implements the HTTP REST API and WebSocket server for ventana core.
//
// This package provides:
//   - REST endpoints for device registration, state and history reads
//   - Device commands published to the controller over MQTT
//   - Push token registration for the owner's mobile app
//   - WebSocket hub broadcasting every reconciled device record
//
// # Architecture
//
// The API server sits beside the reconcile pipeline. The pipeline writes the
// device record and hands the result to the Hub, which pushes a deviceUpdate
// event to every connected dashboard. Commands flow the other way: the API
// resolves them to a control topic and publishes through the MQTT client.
//
// # Graceful Degradation
//
// The server operates without MQTT. Reads and WebSocket connections work,
// only device commands fail with 503.
package api
