package main

import (
	"fmt"
	"io"
	"os"

	"github.com/craftlore/ragcheck/internal/config"
	"github.com/spf13/cobra"
)

type cliState struct {
	configPath string
	cfg        *config.Config
}

var (
	osExit                 = os.Exit
	stderrWriter io.Writer = os.Stderr
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderrWriter, err)
		osExit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &cliState{configPath: config.DefaultPath}

	root := &cobra.Command{
		Use:           "ragcheck",
		Short:         "Evaluate a wiki RAG chatbot against a ground-truth QnA set",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&st.configPath, "config", st.configPath, "path to config file")

	root.AddCommand(newRunCmd(st))
	root.AddCommand(newExportCmd(st))
	root.AddCommand(newHistoryCmd(st))
	root.AddCommand(newChatCmd(st))
	root.AddCommand(newServeCmd(st))
	return root
}

func loadConfigPreRun(st *cliState) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(st.configPath)
		if err != nil {
			return err
		}
		st.cfg = cfg
		return nil
	}
}
