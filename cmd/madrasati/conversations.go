package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moatasem1234/madrasati/internal/chat"
)

func newConversationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Conversation commands",
	}

	cmd.AddCommand(newConversationsListCmd())
	cmd.AddCommand(newConversationsStartCmd())
	cmd.AddCommand(newConversationsRecipientsCmd())
	return cmd
}

func newConversationsListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations with unread badges",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			list := chat.NewConversationList(a.store, a.chat, a.log)
			defer list.Close()
			list.Activate()

			items, err := list.Items(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWITH\tUNREAD\tLAST MESSAGE")
			for _, item := range items {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", item.ID, item.ParticipantName, item.Badge, item.Preview)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}

func newConversationsRecipientsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "recipients",
		Short: "List people you can start a conversation with",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			principal, err := a.requireAuth()
			if err != nil {
				return err
			}

			picker, err := chat.NewRecipientPicker(a.store, a.chat, a.dir, principal, a.log)
			if err != nil {
				return err
			}
			defer picker.Close()

			candidates, err := picker.Candidates(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "ID\t%s\n", picker.RecipientType())
			for _, cand := range candidates {
				fmt.Fprintf(w, "%d\t%s\n", cand.ID, cand.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}

func newConversationsStartCmd() *cobra.Command {
	var (
		configPath string
		recipient  int
		title      string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a conversation",
		Long:  "Opens a new conversation with a recipient from the 'recipients' listing.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			principal, err := a.requireAuth()
			if err != nil {
				return err
			}

			picker, err := chat.NewRecipientPicker(a.store, a.chat, a.dir, principal, a.log)
			if err != nil {
				return err
			}
			defer picker.Close()

			if cmd.Flags().Changed("recipient") {
				picker.Select(recipient)
			}
			ref, err := picker.Start(cmd.Context(), title)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Started conversation %d\n", ref.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	cmd.Flags().IntVarP(&recipient, "recipient", "r", 0, "recipient ID from the recipients listing")
	cmd.Flags().StringVarP(&title, "title", "t", "", "optional conversation title")
	return cmd
}
