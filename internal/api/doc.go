// Package api implements the HTTP REST API and WebSocket server for DevBind.
//
// This package provides:
//   - Read endpoints for binding status, binding I/O history and element state
//   - Attribute and style mutation endpoints that drive output bindings
//   - A live WebSocket feed of element events, attribute changes and device
//     I/O, filtered per connection by topic, element id and binding id
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Security
//
// When security.jwt.secret is set, mutating routes and WebSocket tickets
// require an HS256 bearer token signed with it. WebSocket connections
// authenticate with a single-use ticket so the token never appears in a URL.
// With no secret configured every route is open.
//
// # Graceful Degradation
//
// History is optional: without a repository the history endpoint returns
// 503 and everything else works.
package api
