package main

import "github.com/lauruschat/lauruschat/cmd"

func main() {
	cmd.Execute()
}
