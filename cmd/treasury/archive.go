// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/treasury/internal/config"
	"github.com/blinklabs-io/treasury/internal/node"
	"github.com/spf13/cobra"
)

func archiveCommand() *cobra.Command {
	var from uint64
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Upload the event journal to the configured archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			logger := commonRun()
			res, err := node.Archive(cmd.Context(), cfg, logger, from)
			if err != nil {
				return err
			}
			if res == nil {
				fmt.Println("Nothing to archive.")
				return nil
			}
			fmt.Printf(
				"Archived entries %d-%d to %s\n",
				res.From,
				res.To,
				res.Key,
			)
			return nil
		},
	}
	cmd.Flags().Uint64Var(
		&from,
		"from",
		1,
		"first journal sequence to upload",
	)
	return cmd
}

func exportCommand() *cobra.Command {
	var from uint64
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Write the event journal to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			logger := commonRun()
			count, err := node.Export(cmd.Context(), cfg, logger, args[0], from)
			if err != nil {
				return err
			}
			fmt.Printf("Exported %d journal entries to %s\n", count, args[0])
			return nil
		},
	}
	cmd.Flags().Uint64Var(
		&from,
		"from",
		1,
		"first journal sequence to export",
	)
	return cmd
}
