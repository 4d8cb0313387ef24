package main

import "github.com/naka-gawa/repo-issues/cmd"

func main() {
	cmd.Execute()
}
