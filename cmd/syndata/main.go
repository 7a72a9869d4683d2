package main

import (
	"fmt"
	"os"

	"github.com/syndata/syndata/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands print their own error output; Execute's error only
		// decides the exit code.
		code := cli.GetExitCode(err)
		if code == 0 {
			code = cli.ExitFailure
		}
		if _, ok := err.(*cli.ExitError); !ok {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(code)
	}
}
