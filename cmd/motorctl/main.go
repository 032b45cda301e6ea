package main

import "github.com/OpenTraceLab/motorctl/cmd/motorctl/cmd"

func main() {
	cmd.Execute()
}
