package main

import "madipath/internal/commands"

func main() {
	commands.Execute()
}
