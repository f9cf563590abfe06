package main

import "github.com/curaious/trellis/cmd"

func main() {
	cmd.Execute()
}
