package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pspoerri/asc2tiles/internal/gridref"
)

var gridrefCmd = &cobra.Command{
	Use:   "gridref",
	Short: "Convert between grid references and coordinates",
}

var gridrefParseCmd = &cobra.Command{
	Use:   "parse <ref>",
	Short: "Print the easting and northing of a grid reference's south-west corner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := gridref.Parse(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), c)
		return nil
	},
}

var formatDigits int

var gridrefFormatCmd = &cobra.Command{
	Use:   "format <easting> <northing>",
	Short: "Print the grid reference containing a coordinate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("easting: %w", err)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("northing: %w", err)
		}
		ref, err := gridref.Format(gridref.Coord{Easting: e, Northing: n}, formatDigits)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ref)
		return nil
	},
}

var neighborDX, neighborDY int

var gridrefNeighborCmd = &cobra.Command{
	Use:   "neighbor <ref>",
	Short: "Print the 10 km square offset from ref by --dx squares east and --dy squares north",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := gridref.Neighbor(args[0], neighborDX, neighborDY)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ref)
		return nil
	},
}

func init() {
	gridrefFormatCmd.Flags().IntVarP(&formatDigits, "digits", "d", 2, "Number of digits (even, 0-16)")
	gridrefNeighborCmd.Flags().IntVar(&neighborDX, "dx", 0, "Squares east (negative for west)")
	gridrefNeighborCmd.Flags().IntVar(&neighborDY, "dy", 0, "Squares north (negative for south)")

	gridrefCmd.AddCommand(gridrefParseCmd, gridrefFormatCmd, gridrefNeighborCmd)
}
