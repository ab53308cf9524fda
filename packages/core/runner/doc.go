// Package runner renders tplspec test files and collects their results.
//
// Every file is rendered in its own template environment with the
// assertion tags installed; templates it includes are loaded relative to
// its directory. A file passes when it renders without error. Failures
// are classified as parse, render or assertion failures, and render
// latencies are summarised across the run.
package runner
