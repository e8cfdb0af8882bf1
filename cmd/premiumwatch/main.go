package main

import "p2p-premium/internal/cli"

func main() {
	cli.Execute()
}
