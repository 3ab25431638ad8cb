package main

import "github.com/kamal-hamza/nftgrab/cmd"

func main() {
	cmd.Execute()
}
