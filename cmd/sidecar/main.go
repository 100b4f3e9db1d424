package main

import (
	"github.com/LENAX/searchd-sidecar/pkg/cli/cmd"
)

func main() {
	cmd.Execute()
}
