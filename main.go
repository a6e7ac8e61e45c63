package main

import "github.com/pricewatch-io/pricewatch/cmd"

func main() {
	cmd.Execute()
}
