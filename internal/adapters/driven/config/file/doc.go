// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the overlayc home directory.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - VersionStore: build version persisted through a ConfigStore
package file
