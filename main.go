package main

import "github.com/depcrawl/depcrawl/cmd"

func main() {
	cmd.Execute()
}
