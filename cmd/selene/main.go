package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(mainAux(os.Args[1:]))
}

func mainAux(args []string) int {
	handled, code := dispatchSubcommand(args)
	if !handled {
		if len(args) > 0 {
			fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[0])
		}
		printRootUsage()
		return 1
	}
	return code
}
