package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/memohai/mbot/internal/conversation"
	"github.com/memohai/mbot/internal/logger"
)

func newConversationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Inspect and clear stored conversations",
	}

	var (
		search string
		limit  int
		offset int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConversationService(cmd.Context(), func(svc *conversation.Service) error {
				items, err := svc.List(cmd.Context(), conversation.ListQuery{Search: search, Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				return printSummaries(cmd.OutOrStdout(), items)
			})
		},
	}
	list.Flags().StringVarP(&search, "search", "s", "", "filter by sender id substring")
	list.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	list.Flags().IntVar(&offset, "offset", 0, "rows to skip")

	show := &cobra.Command{
		Use:   "show <sender-id>",
		Short: "Print one conversation as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConversationService(cmd.Context(), func(svc *conversation.Service) error {
				conv, err := svc.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(conv)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear <sender-id>...",
		Short: "Clear the history of one or more conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConversationService(cmd.Context(), func(svc *conversation.Service) error {
				n, err := svc.Clear(cmd.Context(), args...)
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d conversation(s)\n", n)
				return err
			})
		},
	}

	cmd.AddCommand(list, show, clearCmd)
	return cmd
}

func withConversationService(ctx context.Context, fn func(svc *conversation.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	log := logger.L.With(slog.String("component", "cli"))
	s, err := openStores(ctx, log, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(conversation.NewService(log, s.Conversations))
}

func printSummaries(w io.Writer, items []conversation.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SENDER\tMESSAGES\tUPDATED\tPREVIEW")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			item.SenderID, item.MessageCount, item.UpdatedAt.Format("2006-01-02 15:04"), item.HistoryPreview)
	}
	return tw.Flush()
}
