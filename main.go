package main

import "github.com/lanshare/lanshare/cmd"

func main() {
	cmd.Execute()
}
