package main

import (
	"os"

	"eisen/cmd/eisen/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:], os.Stdout, os.Stderr, nil))
}
