package main

import "github.com/dget-io/dget/cmd"

func main() {
	cmd.Execute()
}
