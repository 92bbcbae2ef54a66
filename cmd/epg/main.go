package main

import (
	"context"
	"epg/cmd/epg/cmds"

	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(cmds.NewRootCLI().ExecuteContext(context.Background()))
}
