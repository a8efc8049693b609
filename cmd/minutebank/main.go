package main

import "github.com/dreyes/minutebank/internal/cli"

func main() {
	cli.Execute()
}
