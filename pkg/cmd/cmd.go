// Copyright 2024 PingCAP, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/pingcap/pipeplan/pkg/cmd/cli"
	"github.com/pingcap/pipeplan/pkg/cmd/factory"
	"github.com/pingcap/pipeplan/pkg/cmd/version"
	cerror "github.com/pingcap/pipeplan/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewCmd creates the root command.
func NewCmd() *cobra.Command {
	flags := factory.NewGlobalFlags()
	cmd := &cobra.Command{
		Use:   "pipeplan",
		Short: "Pipeline parallel partitioner and scheduler for computation graphs",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	flags.AddFlags(cmd)
	cli.AddCommands(cmd, factory.NewFactory(flags))
	cmd.AddCommand(version.NewCmdVersion())
	return cmd
}

// Execute runs the root command with args and returns the process exit code.
func Execute(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		log.Debug("command failed", zap.String("error", errors.ErrorStack(err)))
		cmd.PrintErrf("Error: %v\n", err)
	}
	return cerror.ExitCode(err)
}

// Run runs the root command and exits with a code classifying the error.
func Run() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, NewCmd(), os.Args[1:])
	stop()
	os.Exit(code)
}
