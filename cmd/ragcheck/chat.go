package main

import (
	"fmt"
	"strings"

	"github.com/craftlore/ragcheck/internal/rag"
	"github.com/spf13/cobra"
)

func newChatCmd(st *cliState) *cobra.Command {
	return &cobra.Command{
		Use:     "chat <question>",
		Short:   "Ask the wiki chatbot a single question",
		Args:    cobra.ExactArgs(1),
		PreRunE: loadConfigPreRun(st),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, st, args[0])
		},
	}
}

func runChat(cmd *cobra.Command, st *cliState, question string) error {
	if st == nil || st.cfg == nil {
		return fmt.Errorf("chat: missing config (internal error)")
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("chat: empty question")
	}

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

	ctx := cmd.Context()
	res, err := retriever.Query(ctx, question, st.cfg.Retrieval.TopK)
	if err != nil {
		return err
	}
	answer, err := generator.Generate(ctx, question, res.Chunks, res.Sources)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), answer)
	return err
}
