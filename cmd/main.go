package main

import (
	cmd "github.com/kerbaras/otakulog/cmd/otakulog"
)

func main() {
	cmd.Execute()
}
