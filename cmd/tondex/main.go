package main

import "github.com/CjHare/ton-amm-dex/internal/cli"

func main() {
	cli.Execute()
}
