// Package store defines the text storage contract used by persisted assets,
// plus a filesystem implementation and an in-memory one for tests and
// examples.
//
// Responsibilities:
//   - Store only reads and writes whole documents addressed by path.
//   - Write creates missing parent directories before writing.
//   - Encoding, decoding and dirty tracking stay in the jsonasset package;
//     stores never interpret the bytes they hold.
//
// Writes are plain by default. FileStore can be configured with
// WithAtomicWrites to write into a temporary sibling and rename it into
// place, which keeps readers from observing a truncated document.
package store
