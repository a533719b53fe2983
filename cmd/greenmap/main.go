// Package main provides the greenmap CLI.
package main

import "github.com/mesh-intelligence/greenmap/internal/cli"

func main() {
	cli.Execute()
}
