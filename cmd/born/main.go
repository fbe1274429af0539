// Package main provides the born CLI: train the bundled demo models, verify
// operator gradients, and inspect model parameters.
package main

import (
	"context"

	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(NewCLI().ExecuteContext(context.Background()))
}
