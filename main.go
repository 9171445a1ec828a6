package main

import "github.com/KaramelBytes/tidyseg-cli/cmd"

func main() {
	cmd.Execute()
}
