package main

import "github.com/noctivagous/todotracker/cmd"

func main() {
	cmd.Execute()
}
