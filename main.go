package main

import (
	"os"

	"github.com/josephlewis42/xsh/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
