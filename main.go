package main

import "github.com/notargets/tetraview/cmd"

func main() {
	cmd.Execute()
}
