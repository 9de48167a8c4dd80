package main

import (
	"os"

	"github.com/tarrence/clify/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
