package main

import (
	"os"
	"syncd/cmd"
)

func main() {
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "manage")
	}
	cmd.Execute()
}
