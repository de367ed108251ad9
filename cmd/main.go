package main

import "github.com/canopy-network/spectroscope/cmd/cli"

func main() {
	cli.Execute()
}
