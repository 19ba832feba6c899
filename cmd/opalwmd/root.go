package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "opalwmd",
		Short: "OpalWM compositing window manager server",
		Long:  "opalwmd serves the OpalWM wire protocol: window creation, damage tracking, and input dispatch over a raw framebuffer device.",
	}
	root.AddCommand(newServeCmd())
	return root
}
