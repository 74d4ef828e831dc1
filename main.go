package main

import (
	"github.com/conjureai/conjure/frontend/cli/cmd"
)

func main() {
	cmd.Execute()
}
