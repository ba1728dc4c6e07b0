package main

import "github.com/kozaktomas/vibe-matcher/cmd"

func main() {
	cmd.Execute()
}
