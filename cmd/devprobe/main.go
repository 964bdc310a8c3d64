package main

import "devprobe/internal/cli"

func main() {
	cli.Execute()
}
