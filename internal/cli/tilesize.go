// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gogpu/tilemap/policy"
)

// NewTileSizeCommand creates the tilesize command.
func NewTileSizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tilesize <width> <height>",
		Short: "Print the tile size chosen for a screen",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := strconv.Atoi(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid width", err)
			}
			h, err := strconv.Atoi(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid height", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), policy.TileSize(w, h))
			return err
		},
	}
}
