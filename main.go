package main

import "github.com/duocap/duocap/cmd"

func main() {
	cmd.Execute()
}
