package main

import "github.com/deskgenie/genied/internal/cli"

var version = "dev"

func main() {
	cli.Execute(version)
}
