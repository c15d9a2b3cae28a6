// Package services implements the driving port interfaces.
// Services contain the overlay business logic (repository rules, hashing,
// inheritance, change detection and compilation) and orchestrate calls to
// driven ports (adapters).
//
// Services are pure Go with no CGO dependencies.
package services
