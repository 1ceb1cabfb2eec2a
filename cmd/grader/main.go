package main

import "github.com/ahrav/go-grader/internal/cli"

func main() {
	cli.Execute()
}
