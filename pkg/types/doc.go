// Package types defines the storage capability interfaces, request and
// result shapes, and standard errors shared by the dbbridge engine clients.
//
// Two engines implement the contract: a document engine (MongoDB) keyed by a
// 24-hex ObjectID and a relational engine (SQLite) keyed by the integer rowid.
// Both expose identifiers on the wire as strings under IDField.
package types
