package main

import "github.com/cortexdb/query-core/internal/cli"

func main() {
	cli.Execute()
}
