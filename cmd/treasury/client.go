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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/blinklabs-io/treasury/api"
	"github.com/blinklabs-io/treasury/client"
	"github.com/blinklabs-io/treasury/internal/config"
	"github.com/spf13/cobra"
)

type clientFlags struct {
	url      string
	account  string
	decimals int32
	raw      bool
	from     uint64
	count    int
}

func (f *clientFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&f.url,
		"url",
		"",
		"base URL of the treasury API (default from config)",
	)
	cmd.Flags().StringVarP(
		&f.account,
		"account",
		"a",
		"",
		"account to act as",
	)
	cmd.Flags().Int32Var(
		&f.decimals,
		"decimals",
		client.DefaultDecimals,
		"fractional digits of one whole token",
	)
	cmd.Flags().BoolVar(
		&f.raw,
		"raw",
		false,
		"read and print amounts in base units",
	)
}

func (f *clientFlags) registerPage(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.from, "from", 0, "first item to list")
	cmd.Flags().IntVar(&f.count, "count", 0, "number of items to list")
}

func (f *clientFlags) client(cmd *cobra.Command) (*client.Client, error) {
	baseUrl := f.url
	if baseUrl == "" {
		cfg := config.FromContext(cmd.Context())
		if cfg == nil {
			return nil, errors.New("no config found in context")
		}
		baseUrl = fmt.Sprintf("http://127.0.0.1:%d", cfg.ApiPort)
	}
	return client.New(baseUrl, client.WithAccount(f.account)), nil
}

// amountIn converts a user-supplied amount to base units
func (f *clientFlags) amountIn(value string) (string, error) {
	if f.raw {
		return value, nil
	}
	return client.ParseAmount(value, f.decimals)
}

// amountOut renders base units for display
func (f *clientFlags) amountOut(value string) string {
	if f.raw {
		return value
	}
	ret, err := client.FormatAmount(value, f.decimals)
	if err != nil {
		return value
	}
	return ret
}

func parseId(value string) (uint64, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q", value)
	}
	return id, nil
}

func formatTime(ts uint64) string {
	if ts == 0 {
		return "-"
	}
	return time.Unix(int64(ts), 0).UTC().Format(time.RFC3339) //nolint:gosec // timestamps fit in int64
}

// clientCommand builds a command that talks to a running node
func clientCommand(
	use string,
	short string,
	args cobra.PositionalArgs,
	paged bool,
	run func(*cobra.Command, *clientFlags, *client.Client, []string) error,
) *cobra.Command {
	flags := &clientFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client(cmd)
			if err != nil {
				return err
			}
			return run(cmd, flags, c, args)
		},
	}
	flags.register(cmd)
	if paged {
		flags.registerPage(cmd)
	}
	return cmd
}

func clientCommands() []*cobra.Command {
	return []*cobra.Command{
		clientCommand(
			"deposit <amount>",
			"Deposit funds and receive shares",
			cobra.ExactArgs(1),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				amount, err := f.amountIn(args[0])
				if err != nil {
					return err
				}
				ret, err := c.Deposit(cmd.Context(), amount)
				if err != nil {
					return err
				}
				fmt.Printf(
					"Deposited %s for %s shares\n",
					f.amountOut(ret.Amount),
					ret.Shares,
				)
				return nil
			},
		),
		clientCommand(
			"withdraw <shares>",
			"Redeem shares for a proportional payout",
			cobra.ExactArgs(1),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				ret, err := c.Withdraw(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf(
					"Redeemed %s shares for %s\n",
					ret.Shares,
					f.amountOut(ret.Payout),
				)
				return nil
			},
		),
		proposeCommand(),
		clientCommand(
			"vote <id> <yes|no>",
			"Vote on an open proposal",
			cobra.ExactArgs(2),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				id, err := parseId(args[0])
				if err != nil {
					return err
				}
				var support bool
				switch args[1] {
				case "yes":
					support = true
				case "no":
				default:
					return fmt.Errorf("vote must be yes or no, got %q", args[1])
				}
				ret, err := c.Vote(cmd.Context(), id, support)
				if err != nil {
					return err
				}
				fmt.Printf(
					"Voted %s on proposal %d with weight %s\n",
					args[1],
					ret.ProposalId,
					ret.Weight,
				)
				return nil
			},
		),
		clientCommand(
			"finalize <id>",
			"Tally a proposal whose voting window has ended",
			cobra.ExactArgs(1),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				id, err := parseId(args[0])
				if err != nil {
					return err
				}
				ret, err := c.Finalize(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Printf("Proposal %d is %s\n", ret.ProposalId, ret.Status)
				return nil
			},
		),
		clientCommand(
			"execute <id>",
			"Pay out a passed proposal after its timelock",
			cobra.ExactArgs(1),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				id, err := parseId(args[0])
				if err != nil {
					return err
				}
				ret, err := c.Execute(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Printf(
					"Paid %s to %s for proposal %d\n",
					f.amountOut(ret.Amount),
					ret.Account,
					ret.ProposalId,
				)
				return nil
			},
		),
		proposalStatusCommand("cancel <id>", "Cancel your own open proposal", (*client.Client).Cancel),
		proposalStatusCommand("expire <id>", "Expire a stale proposal", (*client.Client).Expire),
		creditCommand(),
		clientCommand(
			"proposal <id>",
			"Show a proposal",
			cobra.ExactArgs(1),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				id, err := parseId(args[0])
				if err != nil {
					return err
				}
				ret, err := c.Proposal(cmd.Context(), id)
				if err != nil {
					return err
				}
				printProposal(f, ret)
				return nil
			},
		),
		clientCommand(
			"proposals",
			"List proposals",
			cobra.NoArgs,
			true,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.Proposals(cmd.Context(), f.from, f.count)
				if err != nil {
					return err
				}
				printProposals(f, ret)
				return nil
			},
		),
		clientCommand(
			"active",
			"List proposals open for voting",
			cobra.NoArgs,
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.ActiveProposals(cmd.Context())
				if err != nil {
					return err
				}
				printProposals(f, ret)
				return nil
			},
		),
		clientCommand(
			"votes <id>",
			"List the votes cast on a proposal",
			cobra.ExactArgs(1),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				id, err := parseId(args[0])
				if err != nil {
					return err
				}
				ret, err := c.Votes(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(ret) == 0 {
					fmt.Println("No votes cast.")
					return nil
				}
				fmt.Printf("%-24s  %-7s  %24s  %s\n", "VOTER", "SUPPORT", "WEIGHT", "RETRACTED")
				for _, v := range ret {
					fmt.Printf("%-24s  %-7t  %24s  %t\n", v.Voter, v.Support, v.Weight, v.Retracted)
				}
				return nil
			},
		),
		clientCommand(
			"has-voted <id> <account>",
			"Check whether an account voted on a proposal",
			cobra.ExactArgs(2),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				id, err := parseId(args[0])
				if err != nil {
					return err
				}
				voted, err := c.HasVoted(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				fmt.Println(voted)
				return nil
			},
		),
		clientCommand(
			"stats",
			"Show fund totals",
			cobra.NoArgs,
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Treasury value:  %s\n", f.amountOut(ret.TreasuryValue))
				fmt.Printf("Total shares:    %s\n", ret.TotalShares)
				fmt.Printf("Voting shares:   %s\n", ret.VotingShares)
				fmt.Printf("Members:         %d\n", ret.MemberCount)
				fmt.Printf("Proposals:       %d\n", ret.ProposalCount)
				fmt.Printf("Min reputation:  %d\n", ret.MinReputation)
				return nil
			},
		),
		clientCommand(
			"share-price",
			"Show the value of one share",
			cobra.NoArgs,
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.SharePrice(cmd.Context())
				if err != nil {
					return err
				}
				if f.raw {
					fmt.Printf("%s (scale %s)\n", ret.SharePrice, ret.Scale)
					return nil
				}
				price, err := client.FormatAmount(ret.SharePrice, int32(len(ret.Scale)-1)) //nolint:gosec // scale is a power of ten
				if err != nil {
					return err
				}
				fmt.Println(price)
				return nil
			},
		),
		clientCommand(
			"members",
			"List members and their shares",
			cobra.NoArgs,
			true,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.Members(cmd.Context(), f.from, f.count)
				if err != nil {
					return err
				}
				fmt.Printf("%-24s  %s\n", "ACCOUNT", "SHARES")
				for _, m := range ret {
					fmt.Printf("%-24s  %s\n", m.Account, m.Shares)
				}
				return nil
			},
		),
		clientCommand(
			"shares <account>",
			"Show an account's shares",
			cobra.ExactArgs(1),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				ret, err := c.MemberShares(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Println(ret)
				return nil
			},
		),
		clientCommand(
			"period-spent [period]",
			"Show spending in a period, the current one by default",
			cobra.MaximumNArgs(1),
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
				var ret *api.PeriodResponse
				var err error
				if len(args) == 0 {
					ret, err = c.CurrentPeriod(cmd.Context())
				} else {
					period, parseErr := strconv.ParseUint(args[0], 10, 64)
					if parseErr != nil {
						return fmt.Errorf("invalid period %q", args[0])
					}
					ret, err = c.PeriodSpent(cmd.Context(), period)
				}
				if err != nil {
					return err
				}
				fmt.Printf("Period:  %d\n", ret.Period)
				fmt.Printf("Spent:   %s\n", f.amountOut(ret.Spent))
				fmt.Printf("Cap:     %s\n", f.amountOut(ret.Cap))
				return nil
			},
		),
		clientCommand(
			"config",
			"Show the governance parameters",
			cobra.NoArgs,
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.Config(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("Min deposit:       %s\n", f.amountOut(ret.MinDeposit))
				fmt.Printf("Min reputation:    %d\n", ret.MinReputation)
				fmt.Printf("Voting period:     %s\n", time.Duration(ret.VotingPeriod)*time.Second) //nolint:gosec // configured periods are small
				fmt.Printf("Timelock period:   %s\n", time.Duration(ret.TimelockPeriod)*time.Second) //nolint:gosec // configured periods are small
				fmt.Printf("Quorum:            %d%%\n", ret.QuorumPercent)
				fmt.Printf("Proposal cap:      %s\n", client.FormatBps(ret.ProposalCapBps))
				fmt.Printf("Period cap:        %s\n", client.FormatBps(ret.PeriodCapBps))
				fmt.Printf("Period length:     %s\n", time.Duration(ret.PeriodLength)*time.Second) //nolint:gosec // configured periods are small
				fmt.Printf("Dead shares:       %s\n", ret.DeadShares)
				return nil
			},
		),
		clientCommand(
			"events",
			"List journaled fund events",
			cobra.NoArgs,
			true,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.Events(cmd.Context(), f.from, f.count)
				if err != nil {
					return err
				}
				for _, evt := range ret {
					data, err := json.Marshal(evt.Data)
					if err != nil {
						return err
					}
					fmt.Printf(
						"%-8d  %-20s  %s  %s\n",
						evt.Seq,
						evt.Type,
						time.UnixMilli(evt.Timestamp).UTC().Format(time.RFC3339),
						data,
					)
				}
				return nil
			},
		),
		clientCommand(
			"treasury",
			"Show the treasury balance",
			cobra.NoArgs,
			false,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.Treasury(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Println(f.amountOut(ret.Balance))
				return nil
			},
		),
		clientCommand(
			"transfers",
			"List treasury transfers",
			cobra.NoArgs,
			true,
			func(cmd *cobra.Command, f *clientFlags, c *client.Client, _ []string) error {
				ret, err := c.Transfers(cmd.Context(), f.from, f.count)
				if err != nil {
					return err
				}
				fmt.Printf(
					"%-10s  %-24s  %24s  %-20s  %s\n",
					"KIND", "ACCOUNT", "AMOUNT", "TIME", "MEMO",
				)
				for _, t := range ret {
					account := t.Account
					if t.ProposalId > 0 {
						account = fmt.Sprintf("%s (#%d)", account, t.ProposalId)
					}
					fmt.Printf(
						"%-10s  %-24s  %24s  %-20s  %s\n",
						t.Kind,
						account,
						f.amountOut(t.Amount),
						formatTime(t.Timestamp),
						t.Memo,
					)
				}
				return nil
			},
		),
	}
}

func proposeCommand() *cobra.Command {
	var externalRef uint64
	cmd := clientCommand(
		"propose <receiver> <amount> <description>",
		"Submit a spending proposal",
		cobra.ExactArgs(3),
		false,
		func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
			amount, err := f.amountIn(args[1])
			if err != nil {
				return err
			}
			ret, err := c.SubmitProposal(
				cmd.Context(),
				api.ProposalRequest{
					Receiver:    args[0],
					Amount:      amount,
					Description: args[2],
					ExternalRef: externalRef,
				},
			)
			if err != nil {
				return err
			}
			fmt.Printf("Submitted proposal %d\n", ret.Id)
			return nil
		},
	)
	cmd.Flags().Uint64Var(
		&externalRef,
		"ref",
		0,
		"external reference to attach to the proposal",
	)
	return cmd
}

func creditCommand() *cobra.Command {
	var memo string
	cmd := clientCommand(
		"credit <amount>",
		"Record funds arriving in the treasury",
		cobra.ExactArgs(1),
		false,
		func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
			amount, err := f.amountIn(args[0])
			if err != nil {
				return err
			}
			ret, err := c.Credit(cmd.Context(), amount, memo)
			if err != nil {
				return err
			}
			fmt.Printf("Treasury balance: %s\n", f.amountOut(ret.Balance))
			return nil
		},
	)
	cmd.Flags().StringVar(&memo, "memo", "", "note recorded with the credit")
	return cmd
}

func proposalStatusCommand(
	use string,
	short string,
	call func(*client.Client, context.Context, uint64) (*api.ProposalResponse, error),
) *cobra.Command {
	return clientCommand(
		use,
		short,
		cobra.ExactArgs(1),
		false,
		func(cmd *cobra.Command, f *clientFlags, c *client.Client, args []string) error {
			id, err := parseId(args[0])
			if err != nil {
				return err
			}
			ret, err := call(c, cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("Proposal %d is %s\n", ret.Id, ret.Status)
			return nil
		},
	)
}

func printProposal(f *clientFlags, p *api.ProposalResponse) {
	fmt.Printf("Id:           %d\n", p.Id)
	fmt.Printf("Status:       %s\n", p.Status)
	fmt.Printf("Proposer:     %s\n", p.Proposer)
	fmt.Printf("Receiver:     %s\n", p.Receiver)
	fmt.Printf("Amount:       %s\n", f.amountOut(p.Amount))
	fmt.Printf("Description:  %s\n", p.Description)
	fmt.Printf("Yes votes:    %s\n", p.YesVotes)
	fmt.Printf("No votes:     %s\n", p.NoVotes)
	fmt.Printf("Created:      %s\n", formatTime(p.CreatedAt))
	fmt.Printf("Passed:       %s\n", formatTime(p.PassedAt))
	if p.ExternalRef != 0 {
		fmt.Printf("Reference:    %d\n", p.ExternalRef)
	}
}

func printProposals(f *clientFlags, proposals []api.ProposalResponse) {
	if len(proposals) == 0 {
		fmt.Println("No proposals.")
		return
	}
	fmt.Printf(
		"%-6s  %-10s  %24s  %-24s  %s\n",
		"ID", "STATUS", "AMOUNT", "RECEIVER", "DESCRIPTION",
	)
	for _, p := range proposals {
		fmt.Printf(
			"%-6d  %-10s  %24s  %-24s  %s\n",
			p.Id,
			p.Status,
			f.amountOut(p.Amount),
			p.Receiver,
			p.Description,
		)
	}
}
