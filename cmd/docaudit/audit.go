package main

import (
	"time"

	"github.com/spf13/cobra"
)

var auditTenant int64

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List a tenant's audit log, newest first",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().Int64Var(&auditTenant, "tenant", 0, "tenant whose events to list")
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	events, err := a.store.ListAuditEvents(cmd.Context(), auditTenant)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		cmd.Printf("No audit events for tenant %d\n", auditTenant)
		return nil
	}
	for _, ev := range events {
		cmd.Printf("%s  %-20s %s\n", ev.CreatedAt.Format(time.RFC3339), ev.Action, ev.Details)
	}
	return nil
}
