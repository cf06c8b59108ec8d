package main

import "odds-picks/internal/cli"

func main() {
	cli.Execute()
}
