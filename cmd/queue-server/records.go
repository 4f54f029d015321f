package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aarogya/queue/internal/domain/patient"
	"github.com/aarogya/queue/internal/domain/queue"
	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/domain/visit"
)

func patientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Inspect registered patients",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List patients, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			patients, err := patient.NewService(patient.NewRepoPG(pool), cfg.PhoneRegion).List(ctx, limit, offset)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s %-6s %-30s %s\n", "PHONE", "YOB", "NAME", "REGISTERED AT")
			for _, p := range patients {
				name := "-"
				if p.Name != nil {
					name = *p.Name
				}
				fmt.Printf("%-16s %-6d %-30s %s\n", p.Phone, p.YOB, name, p.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	listCmd.Flags().Int("limit", patient.DefaultListLimit, "Maximum number of patients")
	listCmd.Flags().Int("offset", 0, "Number of patients to skip")
	cmd.AddCommand(listCmd)

	return cmd
}

func visitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "Maintain stored visits",
	}

	backfillCmd := &cobra.Command{
		Use:   "backfill-summaries",
		Short: "Write summaries for visits stored without one",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := newLogger(cfg)
			policy, err := triage.NewPolicy(cfg.HighThreshold, cfg.MediumThreshold)
			if err != nil {
				return err
			}
			patientSvc := patient.NewService(patient.NewRepoPG(pool), cfg.PhoneRegion)
			visitSvc := visit.NewService(visit.NewRepoPG(pool), logger)
			engine := queue.NewEngine(visitSvc, queue.Options{MinutesPerPatient: cfg.MinutesPerPatient})
			checkinSvc := newCheckinService(cfg, logger, policy, patientSvc, visitSvc, engine, nil)

			n, err := checkinSvc.BackfillSummaries(ctx, visitSvc, limit)
			if err != nil {
				return err
			}
			fmt.Printf("Filled %d summary(ies).\n", n)
			return nil
		},
	}
	backfillCmd.Flags().Int("limit", visit.MaxListLimit, "Maximum number of visits to process")
	cmd.AddCommand(backfillCmd)

	return cmd
}
