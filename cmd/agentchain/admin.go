package main

import (
	"fmt"

	"agentchain/internal/services"

	"github.com/spf13/cobra"
)

var (
	cleanupAgent    string
	cleanupPrefixes []string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the default channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(cfg.Storage, false)
		if err != nil {
			return err
		}
		defer closeStore()

		results, err := services.NewAdminService(st).Setup(cmd.Context())
		if err != nil {
			return err
		}
		for _, line := range results {
			fmt.Println(line)
		}
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete test data by agent name or channel prefix",
	Long:  "Removes the posts, comments and votes of one agent, and/or the channels whose names start with the given prefixes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(cfg.Storage, false)
		if err != nil {
			return err
		}
		defer closeStore()

		report, err := services.NewAdminService(st).Cleanup(cmd.Context(), services.CleanupInput{
			AgentName:       cleanupAgent,
			ChannelPrefixes: cleanupPrefixes,
		})
		if err != nil {
			return err
		}

		if cleanupAgent != "" && !report.AgentFound {
			fmt.Printf("agent %q not found\n", cleanupAgent)
		}
		fmt.Printf("deleted posts=%d comments=%d votes=%d notifications=%d channels=%d\n",
			report.Posts, report.Comments, report.Votes, report.Notifications, report.Channels)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().StringVar(&cleanupAgent, "agent", "", "Agent name whose content should be deleted")
	cleanupCmd.Flags().StringSliceVar(&cleanupPrefixes, "prefix", nil, "Channel name prefix to delete (repeatable)")
}
