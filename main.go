package main

import "replkit/cmd"

func main() {
	cmd.Execute()
}
