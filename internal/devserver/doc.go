// Package devserver is an in-memory implementation of the products API for
// local development and tests.
//
// Routes:
//
//   - GET /products: JSON array in insertion order
//   - POST /products/create: {name, price}; 201 "Product created"
//   - PUT /products/{id}: {id, name, price}; 200 "Product updated", 404 if unknown
//   - DELETE /products/{id}: 200 {"deleted": id}, 404 if unknown
//   - GET /healthz, GET /metrics
//
// Bodies are validated with the same rules the client applies to drafts;
// rejected bodies get a 400 whose JSON error lists the offending fields.
// Every error body carries the chi request id.
package devserver
