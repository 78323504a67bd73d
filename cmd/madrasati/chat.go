package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moatasem1234/madrasati/internal/chat"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Message thread commands",
	}

	cmd.AddCommand(newChatViewCmd())
	cmd.AddCommand(newChatSendCmd())
	cmd.AddCommand(newChatDeleteCmd())
	return cmd
}

func threadFor(a *app, conversationID int) *chat.Thread {
	return chat.NewThread(a.store, a.chat, a.sessions, a.log, conversationID)
}

func newChatViewCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "view <conversation-id>",
		Short: "Show a conversation's messages",
		Long:  "Prints the thread oldest first and marks the conversation as read.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			thread := threadFor(a, id)
			defer thread.Close()
			thread.Activate()

			views, err := thread.Messages(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, v := range views {
				marker := " "
				if v.Mine {
					marker = ">"
				}
				stamp := ""
				if !v.Time.IsZero() {
					stamp = v.Time.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(out, "%s [%d] %s %s: %s\n", marker, v.ID, stamp, v.SenderName, v.Content)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}

func newChatSendCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "send <conversation-id> <message...>",
		Short: "Send a message",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			thread := threadFor(a, id)
			defer thread.Close()
			thread.Activate()

			thread.SetInput(strings.Join(args[1:], " "))
			if err := thread.Send(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Sent")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}

func newChatDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <conversation-id> <message-id>",
		Short: "Delete a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			conversationID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid conversation id %q", args[0])
			}
			messageID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid message id %q", args[1])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			thread := threadFor(a, conversationID)
			defer thread.Close()

			if err := thread.Delete(cmd.Context(), messageID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted message %d\n", messageID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}
