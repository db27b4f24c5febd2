// The main package for the websight executable.
package main

import (
	"github.com/websightdev/websight/cmd"
)

func main() {
	cmd.Execute()
}
