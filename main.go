package main

import "github.com/sigpull/sigpull/cmd"

func main() {
	cmd.Execute()
}
