package main

import (
	"github.com/spf13/cobra"

	"github.com/emlkit/go-emlspan/cmd/emlspan/cmd"
)

func main() {
	err := cmd.Execute()
	cobra.CheckErr(err)
}
