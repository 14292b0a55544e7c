package main

import "github.com/timekeepco/timekeep/internal/cli"

func main() {
	cli.Execute()
}
