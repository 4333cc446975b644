package main

import (
	"fmt"
	"os"
)

const usage = `usage: spacesim <command> [flags]

commands:
  serve    run the match server
  run      simulate a scenario offline with built-in agents
  agent    fly a remote ship with a built-in agent
  token    print the agent URL for a ship of a running match
  classes  list ship classes and prices
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		err = serveCmd(args)
	case "run":
		err = runCmd(args)
	case "agent":
		err = agentCmd(args)
	case "token":
		err = tokenCmd(args)
	case "classes":
		err = classesCmd(args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "spacesim:", err)
		os.Exit(1)
	}
}
