package main

import "github.com/loop-hq/loop-api/cmd"

func main() {
	cmd.Execute()
}
