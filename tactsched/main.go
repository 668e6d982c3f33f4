// Command tactsched runs the two-stage tact scheduler from the command line.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/tactsched/tactsched/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
