package main

import "github.com/shelffs/shelffs/cmd"

func main() {
	cmd.Execute()
}
