package main

import (
	"fmt"
	"os"

	"github.com/roach88/eigen/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "eigen:", err)
	}
	return cli.GetExitCode(err)
}
