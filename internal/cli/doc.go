// Package cli parses the command-line surface of the build runner
// into an app.Config.
package cli
