// Package cli handles command-line argument parsing for the pipegrid
// binary. It translates flags into an app.Config and reports usage
// errors through ExitError so main can choose the process exit code.
package cli
