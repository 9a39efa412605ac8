package main

import "github.com/MeKo-Tech/intygscan/cmd/intygscan/cmd"

func main() {
	cmd.Execute()
}
