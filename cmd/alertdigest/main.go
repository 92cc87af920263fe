package main

import "alert-digest/internal/cli"

func main() {
	cli.Execute()
}
