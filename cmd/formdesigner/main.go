// formdesigner validates, normalises and evaluates form schemas and hosts the
// interactive terminal designer.
package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-formdesigner/internal/command"
)

var version = "dev"

func main() {
	command.Version = version
	root := command.NewRootCommand()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
