package main

import "github.com/MeKo-Tech/darkroom/internal/cmd"

func main() {
	cmd.Execute()
}
