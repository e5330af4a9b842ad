// goportalctl -- CLI client for the goportal daemon's introspection API.
package main

import "github.com/dantte-lp/goportal/cmd/goportalctl/commands"

func main() {
	commands.Execute()
}
