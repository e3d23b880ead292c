// Package shared is the common layer of the users service: per-scope entity
// services over the generic repository, and an App that wires logging,
// configuration, the database and the HTTP middleware together.
package shared
