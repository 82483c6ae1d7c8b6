package main

import "github.com/avotaangi/multibank/internal/cli"

func main() {
	cli.Execute()
}
