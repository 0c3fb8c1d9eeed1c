package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"civicReporting/internal/auth"
	"civicReporting/internal/config"
	"civicReporting/internal/db"
	"civicReporting/models"
	"civicReporting/repository"
)

// openStore opens the configured database for one-shot admin commands, which
// need no secrets.
func openStore() (*sql.DB, error) {
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return db.Open(cfg.Database.Path)
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}
	cmd.AddCommand(userCreateCmd())
	cmd.AddCommand(userListCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var (
		name  string
		email string
		admin bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user; --admin creates an administrator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := openStore()
			if err != nil {
				return err
			}
			defer d.Close()

			password, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			role := models.RoleUser
			if admin {
				role = models.RoleAdmin
			}
			svc, err := auth.NewService(repository.NewUserRepository(d), auth.PasswordHasher{})
			if err != nil {
				return err
			}
			u, err := svc.CreateUser(cmd.Context(), name, email, password, role)
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return fmt.Errorf("a user with email %s already exists", email)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (id %d)\n", u.Role, u.Email, u.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// readPassword prompts twice without echo on a terminal, or reads one line from piped input.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		fmt.Fprint(out, "Password: ")
		first, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		fmt.Fprint(out, "Confirm password: ")
		second, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read password confirmation: %w", err)
		}
		if string(first) != string(second) {
			return "", errors.New("passwords do not match")
		}
		if len(first) == 0 {
			return "", errors.New("password cannot be empty")
		}
		return string(first), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password cannot be empty")
	}
	return line, nil
}

func userListCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := openStore()
			if err != nil {
				return err
			}
			defer d.Close()
			return listUsers(cmd.Context(), repository.NewUserRepository(d), cmd.OutOrStdout(), limit, offset)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func listUsers(ctx context.Context, users repository.UserRepositoryI, out io.Writer, limit, offset int) error {
	list, err := users.List(ctx, limit, offset)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print applied migration versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := openStore()
			if err != nil {
				return err
			}
			defer d.Close()
			versions, err := db.AppliedVersions(d)
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Fprintf(cmd.OutOrStdout(), "%04d applied\n", v)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recently applied migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := openStore()
			if err != nil {
				return err
			}
			defer d.Close()
			v, err := db.RollbackLast(d)
			if err != nil {
				return err
			}
			if v == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %04d\n", v)
			return nil
		},
	})
	return cmd
}
