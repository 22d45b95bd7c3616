// Package deploylint provides the command-line interface for deploylint.
// It configures subcommands (check, rules, last, config, ci), parses flags,
// and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/deploylint/deploylint/cmd/deploylint"
//	func main() { deploylint.Execute() }
package deploylint
