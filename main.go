package main

import "pizza-index-watcher/internal/cli"

func main() {
	cli.Execute()
}
