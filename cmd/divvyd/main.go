package main

import "github.com/LeJamon/goDivvyd/internal/cli"

func main() {
	cli.Execute()
}
