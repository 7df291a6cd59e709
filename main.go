package main

import "github.com/dt-pm-tools/r2c/cmd"

func main() {
	cmd.Execute()
}
