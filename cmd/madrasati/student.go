package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/moatasem1234/madrasati/internal/cache"
	"github.com/moatasem1234/madrasati/internal/directory"
)

func newStudentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "student",
		Short: "Student administration",
	}

	cmd.AddCommand(newStudentAddCmd())
	cmd.AddCommand(newStudentUpdateCmd())
	cmd.AddCommand(newStudentRemoveCmd())
	return cmd
}

func studentFlags(cmd *cobra.Command, name, gender, birthDate *string, parentID, classroomID *int) {
	cmd.Flags().StringVar(name, "name", "", "student name")
	cmd.Flags().StringVar(gender, "gender", "", "student gender")
	cmd.Flags().StringVar(birthDate, "birth-date", "", "birth date (YYYY-MM-DD)")
	cmd.Flags().IntVar(parentID, "parent", 0, "parent ID")
	cmd.Flags().IntVar(classroomID, "classroom", 0, "classroom ID")
}

func newStudentAddCmd() *cobra.Command {
	var (
		configPath  string
		name        string
		gender      string
		birthDate   string
		parentID    int
		classroomID int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a student record",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			out, err := a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return a.dir.CreateStudent(ctx, directory.StudentPayload{
					Name:        name,
					Gender:      gender,
					BirthDate:   birthDate,
					ParentID:    parentID,
					ClassroomID: classroomID,
				})
			}, cache.Tag{Type: directory.TagStudent})
			if err != nil {
				return err
			}

			s, _ := out.(directory.Student)
			fmt.Fprintf(cmd.OutOrStdout(), "Created student %d (%s)\n", s.ID, s.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	studentFlags(cmd, &name, &gender, &birthDate, &parentID, &classroomID)
	return cmd
}

func newStudentUpdateCmd() *cobra.Command {
	var (
		configPath  string
		name        string
		gender      string
		birthDate   string
		parentID    int
		classroomID int
	)

	cmd := &cobra.Command{
		Use:   "update <student-id>",
		Short: "Update a student record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid student id %q", args[0])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			out, err := a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return a.dir.UpdateStudent(ctx, id, directory.StudentPayload{
					Name:        name,
					Gender:      gender,
					BirthDate:   birthDate,
					ParentID:    parentID,
					ClassroomID: classroomID,
				})
			}, cache.Tag{Type: directory.TagStudent})
			if err != nil {
				return err
			}

			s, _ := out.(directory.Student)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated student %d (%s)\n", s.ID, s.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	studentFlags(cmd, &name, &gender, &birthDate, &parentID, &classroomID)
	return cmd
}

func newStudentRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <student-id>",
		Short: "Delete a student record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid student id %q", args[0])
			}

			a, err := appFromConfig(configPath)
			if err != nil {
				return err
			}
			if _, err := a.requireAuth(); err != nil {
				return err
			}

			_, err = a.store.Mutate(cmd.Context(), func(ctx context.Context) (any, error) {
				return nil, a.dir.DeleteStudent(ctx, id)
			}, cache.Tag{Type: directory.TagStudent})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed student %d\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "madrasati.yaml", "path to config file")
	return cmd
}
