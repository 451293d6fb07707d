package main

import "github.com/fetchguard/finalizer/cmd/cli"

func main() {
	cli.Main()
}
