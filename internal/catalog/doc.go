// Package catalog provides an HTTP client for the products backend.
//
// # Overview
//
// The client is a stateless adapter: one method per verb, each taking typed
// arguments and returning a parsed result or a typed error. It holds no
// product state; caching lives in the state package.
//
// # API Endpoints
//
//   - GET /products: JSON array of {_id, name, price}
//   - POST /products/create: body {name, price}, plain acknowledgment text
//   - PUT /products/{id}: body {id, name, price}, plain acknowledgment text
//   - DELETE /products/{id}: any non-empty body confirms the delete
//
// # Client Usage
//
//	client, err := catalog.NewClient("http://localhost:3000/products", catalog.Options{})
//	if err != nil {
//		return err
//	}
//	products, err := client.FetchProducts(ctx)
//
// # Error Handling
//
// Every failure is returned, never only logged:
//
//   - *TransportError: no HTTP response (connection refused, timeout, open breaker)
//   - *StatusError: a response outside 2xx
//   - *DecodeError: the list response was not a JSON product array
//   - ErrEmptyResponse: a delete answered without a body
//
// Use errors.As to branch on them. Example messages:
//   - "execute request GET http://localhost:3000/products: dial tcp: connection refused"
//   - "api PUT /products/42 returned status 404: not found"
//   - "decode response: unexpected end of JSON input"
//
// # Circuit Breaker
//
// Calls pass through a gobreaker circuit breaker. Consecutive transport
// failures and 5xx responses open it, after which calls fail fast with a
// *TransportError until the open timeout elapses. Each call still runs at
// most once; retry policy belongs to the caller.
//
// # Form Input
//
// ParseDraft converts raw name/price strings into a validated Draft.
package catalog
