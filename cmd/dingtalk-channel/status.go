package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Charles311/openclaw-channel-dingtalk/internal/history"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configured accounts and credential completeness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(cfg.Accounts))
			for id := range cfg.Accounts {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			if len(ids) == 0 {
				fmt.Println("no accounts configured")
				return nil
			}
			for _, id := range ids {
				acct := cfg.Accounts[id]
				state := "disabled"
				if acct.Enabled {
					state = "enabled"
				}
				creds := "ok"
				if acct.ClientID == "" || acct.ClientSecret == "" {
					creds = "incomplete (missing clientId or clientSecret)"
				}
				direct := "group only"
				if acct.RobotCode != "" {
					direct = "group + direct"
				}
				fmt.Printf("%s\t%s\tcredentials: %s\tsends: %s\n", id, state, creds, direct)
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <account>",
		Short: "Show recent messages for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return fmt.Errorf("history is disabled in config")
			}

			store, err := history.NewStore(cfg.History.DBPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			msgs, err := store.Recent(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				fmt.Println("no messages")
				return nil
			}
			for i := len(msgs) - 1; i >= 0; i-- {
				m := msgs[i]
				fmt.Printf("%s  %-8s  %s  %s\n",
					m.CreatedAt.Format(time.RFC3339), m.Direction, m.ConversationID, m.Content)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum messages to show")
	return cmd
}
