// Command academy serves the lesson academy: the JSON API and dashboard,
// an MCP server for assistants, and content tooling.
package main

import (
	"fmt"
	"os"
	"strings"
)

const usage = `usage: academy <command> [flags]

commands:
  serve            run the HTTP API, dashboard and maintenance jobs (default)
  validate [dir]   audit lesson content; exits 1 when errors are found
  mcp              run the MCP server on stdio
  map <target>     print a lesson map (lesson id) or kit roadmap (kit:<id>)
  install          write ~/.academy/settings.json and fetch helper tools
  version          print the version
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "validate":
		return runValidate(args, os.Stdout)
	case "mcp":
		err = runMCP(args)
	case "map":
		err = runMap(args, os.Stdout)
	case "install":
		err = runInstall(args)
	case "version":
		printVersion()
		return 0
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
