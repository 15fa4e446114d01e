package main

import (
	"fmt"

	"github.com/craftlore/ragcheck/api"
	"github.com/craftlore/ragcheck/internal/rag"
	"github.com/craftlore/ragcheck/internal/store"
	"github.com/spf13/cobra"
)

func newServeCmd(st *cliState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the evaluation results and chat HTTP API",
		Args:    cobra.NoArgs,
		PreRunE: loadConfigPreRun(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, st, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}

func runServe(cmd *cobra.Command, st *cliState, addr string) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("serve: missing config (internal error)")
	}
	if addr == "" {
		addr = st.cfg.Server.Addr
	}

	stor, err := store.Open(st.cfg)
	if err != nil {
		return err
	}
	defer stor.Close()

	embedder, err := newEmbedder(st.cfg)
	if err != nil {
		return err
	}
	retriever, err := newRetriever(st.cfg, embedder)
	if err != nil {
		return err
	}
	provider, err := defaultProviderFromConfig(st.cfg)
	if err != nil {
		return err
	}
	generator, err := rag.NewWikiGenerator(provider)
	if err != nil {
		return err
	}

	srv, err := api.NewServer(st.cfg, stor, retriever, generator)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", addr)
	return srv.Run(addr)
}
