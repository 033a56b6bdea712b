package main

import (
	"github.com/Laisky/igloo-mcp/cmd"
)

func main() {
	cmd.Execute()
}
