// Package server runs the gateway's HTTP listener with graceful
// shutdown on signal or context cancellation.
package server
