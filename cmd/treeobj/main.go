package main

import "github.com/treedata/treeobj/cmd/treeobj/cmd"

func main() {
	cmd.Execute()
}
