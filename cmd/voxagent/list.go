package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	recordsqlite "github.com/itzneel05/voxagent/record/sqlite"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the built-in agent personas",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("barista   coffee orders for Cozy Cafe")
		fmt.Println("wellness  daily mood and objectives check-in")
		fmt.Println("tutor     active recall coach with learn, quiz and teach-back modes")
		fmt.Println("sdr       inbound lead qualification with product FAQ")
		fmt.Println("fraud     card fraud verification call")
		fmt.Println("grocery   grocery cart ordering with recipe expansion")
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "List saved session records",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		agentType, _ := cmd.Flags().GetString("agent")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.Records.Driver != "sqlite" && cfg.Records.Driver != "" {
			return fmt.Errorf("records listing requires the sqlite driver, configured driver is %q", cfg.Records.Driver)
		}
		ctx := context.Background()
		store, err := recordsqlite.Open(ctx, cfg.Records.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		records, err := store.List(ctx, agentType, limit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no records")
			return nil
		}
		for _, rec := range records {
			var slots []string
			for name, v := range rec.Slots {
				slots = append(slots, fmt.Sprintf("%s=%v", name, v.Value))
			}
			fmt.Printf("%s  %s  %s/%s  %s\n",
				rec.CreatedAt.Format("2006-01-02 15:04"), rec.ID, rec.AgentType, rec.Stage,
				strings.Join(slots, " "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.Flags().String("agent", "barista", "Agent type to list records for")
	recordsCmd.Flags().Int("limit", 20, "Maximum records to print (0 for all)")
}
