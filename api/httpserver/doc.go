// Package httpserver provides the shared HTTP server shell for the survey
// services: router construction with standard middleware, structured
// request logging, health and drain endpoints, an optional metrics
// listener, and graceful shutdown.
package httpserver
