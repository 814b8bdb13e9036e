package main

import "rallyrent/cmd"

func main() {
	cmd.Execute()
}
