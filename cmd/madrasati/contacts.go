package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newContactsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Directory listings",
	}

	cmd.AddCommand(newContactsTeachersCmd())
	cmd.AddCommand(newContactsParentsCmd())
	cmd.AddCommand(newContactsStudentsCmd())
	cmd.AddCommand(newContactsClassroomsCmd())
	return cmd
}

func newContactsClassroomsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "classrooms",
		Short: "List classrooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			rooms, err := a.dir.ListClassrooms(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCREATED")
			for _, room := range rooms {
				fmt.Fprintf(w, "%d\t%s\t%s\n", room.ID, room.Name, room.CreatedAt)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}

func newContactsTeachersCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "teachers",
		Short: "List teachers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			records, err := a.dir.ListTeachers(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.User.Name, r.User.Email, r.User.Phone)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}

func newContactsParentsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "parents",
		Short: "List parents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			records, err := a.dir.ListParents(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE")
			for _, r := range records {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.User.Name, r.User.Email, r.User.Phone)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}

func newContactsStudentsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "students",
		Short: "List students",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			students, err := a.dir.ListStudents(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tGENDER\tBIRTH DATE\tPARENT\tCLASSROOM")
			for _, s := range students {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\n", s.ID, s.Name, s.Gender, s.BirthDate, s.ParentID, s.ClassroomID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}
