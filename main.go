package main

import (
	"github.com/Alturino/cart/cmd"
)

func main() {
	cmd.Start()
}
