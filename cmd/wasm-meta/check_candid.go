package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-metadata/candid"
)

func (a *app) checkCandidCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-candid [new.did] [original.did]",
		Short: "Check that a Candid interface can replace another",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := candid.CompatibleFiles(cmd.Context(), candid.Didc{Path: a.cfg.Didc}, args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(a.stdout, "incompatible")
				return errIncompatible
			}
			fmt.Fprintln(a.stdout, "compatible")
			return nil
		},
	}
}
