package main

import "github.com/linanwx/hypebot/cmd"

func main() {
	cmd.Execute()
}
