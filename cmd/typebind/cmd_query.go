// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/typebind/services/typebind"
)

func newResolveCmd(a *app) *cobra.Command {
	var (
		mode      string
		withChain bool
		candidate string
	)

	cmd := &cobra.Command{
		Use:   "resolve <project> <ancestor> <leaf> <position>",
		Short: "Resolve the type bound to an ancestor's parameter",
		Long: `Resolve walks from leaf up to ancestor and reports what leaf binds to
the ancestor's type parameter at position (zero-based).

In class mode the answer is a class name, erased to its bound when the
parameter is still a type variable. In expression mode the full
parameterized type is printed instead.

With --candidate the named class is also checked against the binding's
bounds.`,
		Example: `  typebind resolve . java.util.Map com.acme.NameRegistry 1 --mode expression`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[3])
			if err != nil {
				return fmt.Errorf("position must be an integer: %w", err)
			}

			svc, cleanup, err := a.newService()
			if err != nil {
				return err
			}
			defer cleanup()

			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			id, err := a.loadProject(cmd.Context(), svc, root)
			if err != nil {
				return err
			}

			resp, err := svc.Resolve(cmd.Context(), typebind.ResolveRequest{
				UniverseID:   id,
				Ancestor:     args[1],
				Leaf:         args[2],
				Position:     position,
				Mode:         mode,
				IncludeChain: withChain,
				Candidate:    candidate,
			})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), resp)
			}
			printResolve(cmd, resp, candidate)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", typebind.ModeClass, "Result form: class or expression")
	cmd.Flags().BoolVar(&withChain, "chain", false, "Also print the inheritance chain")
	cmd.Flags().StringVar(&candidate, "candidate", "", "Class to check against the binding")
	return cmd
}

func printResolve(cmd *cobra.Command, resp *typebind.ResolveResponse, candidate string) {
	out := cmd.OutOrStdout()
	if resp.Mode == typebind.ModeExpression {
		fmt.Fprintln(out, resp.Expression)
	} else {
		fmt.Fprintln(out, resp.Class)
	}
	if resp.Approximate {
		fmt.Fprintf(out, "  (%s %s, erased)\n", resp.Kind, resp.Binding)
	}
	if resp.Accepts != nil {
		fmt.Fprintf(out, "  accepts %s: %t\n", candidate, *resp.Accepts)
	}
	for _, n := range resp.Chain {
		fmt.Fprintf(out, "  %s %s %s\n", n.Class, n.Slot, n.Supertype)
	}
}

func newSubtypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "subtype <project> <child> <base>",
		Short: "Check whether one type expression is a subtype of another",
		Long: `Subtype compares two type expressions written in Java syntax, type
arguments included. Type parameters are written Owner#Name.`,
		Example: `  typebind subtype . com.acme.NameRegistry 'java.util.Map<java.lang.String, ?>'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.newService()
			if err != nil {
				return err
			}
			defer cleanup()

			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			id, err := a.loadProject(cmd.Context(), svc, root)
			if err != nil {
				return err
			}

			resp, err := svc.Subtype(cmd.Context(), typebind.SubtypeRequest{
				UniverseID: id,
				Child:      args[1],
				Base:       args[2],
			})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Subtype)
			return nil
		},
	}
}

func newChainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <project> <ancestor> <leaf>",
		Short: "Print the inheritance path from leaf up to ancestor",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.newService()
			if err != nil {
				return err
			}
			defer cleanup()

			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			id, err := a.loadProject(cmd.Context(), svc, root)
			if err != nil {
				return err
			}

			resp, err := svc.Chain(cmd.Context(), typebind.ChainRequest{
				UniverseID: id,
				Ancestor:   args[1],
				Leaf:       args[2],
			})
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Ancestor)
			for _, n := range resp.Nodes {
				fmt.Fprintf(out, "  <- %s (%s %s)\n", n.Class, n.Slot, n.Supertype)
			}
			return nil
		},
	}
}

func newTypesCmd(a *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "types <project> [name]",
		Short: "List declared types, or describe one",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := a.newService()
			if err != nil {
				return err
			}
			defer cleanup()

			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			id, err := a.loadProject(cmd.Context(), svc, root)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 2 {
				info, err := svc.Type(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				if a.jsonOutput {
					return a.printJSON(out, info)
				}
				fmt.Fprintf(out, "%s %s\n", info.Kind, info.Name)
				for _, p := range info.TypeParams {
					fmt.Fprintf(out, "  param %s %v\n", p.Name, p.Bounds)
				}
				if info.Supertype != "" {
					fmt.Fprintf(out, "  extends %s\n", info.Supertype)
				}
				for _, iface := range info.Interfaces {
					fmt.Fprintf(out, "  implements %s\n", iface)
				}
				return nil
			}

			resp, err := svc.ListTypes(cmd.Context(), id, prefix)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return a.printJSON(out, resp)
			}
			for _, t := range resp.Types {
				fmt.Fprintf(out, "%-10s %s\n", t.Kind, t.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Only list types whose name starts with this prefix")
	return cmd
}
