package main

import "careline/cmd/agent/cmd"

func main() {
	cmd.Execute()
}
