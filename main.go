package main

import "github.com/lukman83/carizon/cmd"

func main() {
	cmd.Execute()
}
