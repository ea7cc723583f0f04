// Command mcpmux aggregates multiple upstream MCP servers behind one
// downstream MCP endpoint per app.
package main

import "github.com/mcpmux/mcpmux/cmd/mcpmux/cmd"

func main() {
	cmd.Execute()
}
