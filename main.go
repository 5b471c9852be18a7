package main

import (
	"os"

	"scanguard/cmd"
)

func main() {
	os.Exit(cmd.Execute(os.Args[1:]))
}
