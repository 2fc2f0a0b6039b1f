package main

import "github.com/Codesait/clawbot-telegram/cmd"

func main() {
	cmd.Execute()
}
