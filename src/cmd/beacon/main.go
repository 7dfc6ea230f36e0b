package main

import (
	cmd "github.com/openincident/beacon/src/cmd/beacon/command"
)

func main() {
	cmd.Execute()
}
