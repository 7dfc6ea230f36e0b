// Package config defines the configuration for a beacon node.
//
// Regardless of how beacon is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// configuration options, beacon relies on a data directory, defined by
// Config.DataDir, where it expects to find a few additional configuration
// files:
//
//  peers.json // (optional) a JSON file containing the initial list of peers to pull from.
//  schema.json // (optional) a JSON file containing the local namespace schema definition.
//
// The three core options that shape the schema subsystem are CoreDomain,
// LocalDomain, and Namespace. They are plain fields of the Config object, and
// are never read from ambient global state inside the engine.
package config
