// Package history keeps a SQLite record of test runs so trends in
// failures and render times can be inspected with `tplspec history`.
package history
