package main

import "github.com/marcus/missionctl/cmd/missionctl/commands"

func main() {
	commands.Execute()
}
