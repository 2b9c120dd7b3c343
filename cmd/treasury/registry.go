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
	"fmt"
	"os"

	"github.com/blinklabs-io/treasury/gate"
	"github.com/spf13/cobra"
)

func registryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Agent registry file commands",
	}
	cmd.AddCommand(
		registryFileCommand(
			"encrypt <file>",
			"Encrypt a registry file with SOPS",
			gate.EncryptRegistry,
		),
		registryFileCommand(
			"decrypt <file>",
			"Decrypt a SOPS-encrypted registry file",
			gate.DecryptRegistry,
		),
	)
	return cmd
}

func registryFileCommand(
	use string,
	short string,
	transform func([]byte) ([]byte, error),
) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ret, err := transform(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if output == "" {
				_, err = os.Stdout.Write(ret)
				return err
			}
			return os.WriteFile(output, ret, 0o600)
		},
	}
	cmd.Flags().StringVarP(
		&output,
		"output",
		"o",
		"",
		"write to a file instead of stdout",
	)
	return cmd
}
