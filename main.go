package main

import "cc_activity_mon/cmd"

func main() {
	cmd.Execute()
}
