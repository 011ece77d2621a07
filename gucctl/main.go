// Command gucctl drives a command channel against a simulated controller.
package main

import "github.com/sarchlab/guclink/gucctl/cmd"

func main() {
	cmd.Execute()
}
