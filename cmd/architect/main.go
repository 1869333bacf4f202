package main

import "github.com/santiagomed/architect/cli"

func main() {
	cli.Execute()
}
