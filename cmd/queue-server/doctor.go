package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aarogya/queue/internal/domain/doctor"
	"github.com/aarogya/queue/internal/domain/triage"
	"github.com/aarogya/queue/internal/platform/accesslog"
)

func doctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Manage the doctor directory",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add a doctor",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			rawTier, _ := cmd.Flags().GetString("tier")
			code, _ := cmd.Flags().GetString("code")

			tier, err := triage.ParseTier(rawTier)
			if err != nil {
				return err
			}

			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			d, err := doctor.NewService(doctor.NewRepoPG(pool), nil).Create(ctx, name, tier, code)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s (%s) with id %d.\n", d.Name, d.Tier, d.ID)
			return nil
		},
	}
	addCmd.Flags().String("name", "", "Doctor's display name")
	addCmd.Flags().String("tier", "", "JUNIOR or SENIOR")
	addCmd.Flags().String("code", "", "Access code used at sign-in")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("tier")
	_ = addCmd.MarkFlagRequired("code")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List doctors",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			doctors, err := doctor.NewService(doctor.NewRepoPG(pool), nil).List(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%-6s %-8s %-30s %s\n", "ID", "TIER", "NAME", "CREATED AT")
			for _, d := range doctors {
				fmt.Printf("%-6d %-8s %-30s %s\n", d.ID, d.Tier, d.Name, d.CreatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Install the sample doctors into an empty directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := doctor.NewService(doctor.NewRepoPG(pool), nil).Seed(ctx, doctor.SampleDoctors)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("Doctor directory is not empty; nothing seeded.")
				return nil
			}
			fmt.Printf("Seeded %d doctor(s).\n", n)
			return nil
		},
	})

	accessCmd := &cobra.Command{
		Use:   "access",
		Short: "Show recent doctor access to patient records",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetInt64("id")
			limit, _ := cmd.Flags().GetInt("limit")

			ctx := context.Background()
			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			var doctorID *int64
			if id > 0 {
				doctorID = &id
			}
			entries, err := accesslog.NewStore(pool).Recent(ctx, doctorID, limit)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s %-6s %-8s %-12s %-10s %-6s %s\n", "AT", "DOCTOR", "TIER", "ACTION", "RESOURCE", "STATUS", "ROUTE")
			for _, e := range entries {
				fmt.Printf("%-20s %-6d %-8s %-12s %-10s %-6d %s %s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.DoctorID, e.DoctorTier,
					e.Action, e.Resource, e.StatusCode, e.Method, e.Route)
			}
			return nil
		},
	}
	accessCmd.Flags().Int64("id", 0, "Only show this doctor's access")
	accessCmd.Flags().Int("limit", 50, "Maximum number of entries")
	cmd.AddCommand(accessCmd)

	return cmd
}
