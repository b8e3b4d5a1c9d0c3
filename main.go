package main

import "github.com/gitpod-io/snapbuild/cmd"

func main() {
	cmd.Execute()
}
