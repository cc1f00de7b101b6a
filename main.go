// The main package for the confcrawler executable.
package main

import (
	"github.com/confatlas/confcrawler/cmd"
)

func main() {
	cmd.Execute()
}
