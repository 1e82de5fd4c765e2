package main

import "github.com/naka-gawa/gh-metrics/cmd"

func main() {
	cmd.Execute()
}
