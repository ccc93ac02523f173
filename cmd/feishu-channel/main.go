package main

import "github.com/openclaw/feishu-channel/internal/cli"

func main() {
	cli.Execute()
}
