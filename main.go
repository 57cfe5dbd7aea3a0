package main

import "Barista/cmd"

func main() {
	cmd.Execute()
}
