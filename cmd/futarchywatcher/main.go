package main

import (
	"futarchy-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
