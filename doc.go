// Package kestrel is a typed client for broker REST gateways.
//
// Endpoints are plain functions registered under a provider name together
// with a parameter struct. The struct's tags describe each parameter's
// declared name, wire alias, default and serialization transform; the
// resulting Model validates and coerces caller arguments before any
// request is sent. A Dispatcher runs each call concurrently on a shared
// Client and returns a Handle to await or cancel it.
package kestrel
