package main

import "courtmap/cmd"

func main() {
	cmd.Execute()
}
