package main

import "github.com/voxalign/voxalign/internal/cli"

func main() {
	cli.Main()
}
