package main

import "gracc/pkg/cmd"

func main() {
	cmd.Execute()
}
