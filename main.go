package main

import "github.com/pcanham/gantry/cmd"

func main() {
	cmd.Execute()
}
