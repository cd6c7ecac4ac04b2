package main

import "github.com/yarda-ai/orchestrator/internal/cli"

func main() {
	cli.Execute()
}
