// Package repository provides a generic single-entity repository that delegates
// every operation to an abstract persistence Session, committing each write as
// its own transaction and refreshing entities afterwards.
package repository
