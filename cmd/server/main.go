package main

import "github.com/eldtechnologies/fileshare/internal/cli"

func main() {
	cli.Execute()
}
