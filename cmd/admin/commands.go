package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/eneogroup/elimu-app-backend/internal/auth"
	"github.com/eneogroup/elimu-app-backend/internal/model"
)

const (
	schoolFlag   = "school"
	usernameFlag = "username"
	roleFlag     = "role"
	fullNameFlag = "full-name"
	codeFlag     = "code"
	nameFlag     = "name"
	cityFlag     = "city"
)

func newRootCommand(a *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operate an elimu deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.AddCommand(
		newMigrateCommand(a),
		newRollbackCommand(a),
		newCreateSchoolCommand(a),
		newAddUserCommand(a),
		newResetPasswordCommand(a),
		newDeactivateUserCommand(a),
		newPurgeTokensCommand(a),
	)
	return root
}

func newMigrateCommand(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := a.migrate(cmd.Context(), false)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, msg)
			return nil
		},
	}
}

func newRollbackCommand(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Revert the last schema migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := a.migrate(cmd.Context(), true)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, msg)
			return nil
		},
	}
}

func newCreateSchoolCommand(a *cli) *cobra.Command {
	flags := map[string]cobraflags.Flag{
		codeFlag: &cobraflags.StringFlag{Name: codeFlag, Usage: "Unique school code used at login"},
		nameFlag: &cobraflags.StringFlag{Name: nameFlag, Usage: "School name"},
		cityFlag: &cobraflags.StringFlag{Name: cityFlag, Usage: "City"},
	}
	cmd := &cobra.Command{
		Use:   "create-school",
		Short: "Register a new school (tenant)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := model.School{
				Code: flags[codeFlag].GetString(),
				Name: flags[nameFlag].GetString(),
				City: flags[cityFlag].GetString(),
			}
			if s.Code == "" || s.Name == "" {
				return fmt.Errorf("--%s and --%s are required", codeFlag, nameFlag)
			}
			return a.withStores(cmd, func(ctx context.Context, st *stores) error {
				if err := st.Schools.Create(ctx, &s); err != nil {
					return fmt.Errorf("create school: %w", err)
				}
				fmt.Fprintf(a.out, "school %s created with id %d\n", s.Code, s.ID)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

// principalFlags are shared by the commands addressing one principal.
func principalFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		schoolFlag:   &cobraflags.StringFlag{Name: schoolFlag, Usage: "Code of the principal's home school"},
		usernameFlag: &cobraflags.StringFlag{Name: usernameFlag, Usage: "Username within the school"},
	}
}

func newAddUserCommand(a *cli) *cobra.Command {
	flags := principalFlags()
	flags[roleFlag] = &cobraflags.StringFlag{Name: roleFlag, Value: string(model.RoleStudent), Usage: "Role of the new principal"}
	flags[fullNameFlag] = &cobraflags.StringFlag{Name: fullNameFlag, Usage: "Display name"}

	cmd := &cobra.Command{
		Use:   "add-user",
		Short: "Create a principal; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, username, err := requirePrincipal(flags)
			if err != nil {
				return err
			}
			role, err := model.ParseRole(flags[roleFlag].GetString())
			if err != nil {
				return err
			}
			pwd, err := a.promptPassword()
			if err != nil {
				return err
			}
			return a.withStores(cmd, func(ctx context.Context, st *stores) error {
				school, err := st.Schools.GetByCode(ctx, code)
				if err != nil {
					return fmt.Errorf("school %s: %w", code, err)
				}
				hash, err := auth.HashPassword(pwd, st.BcryptCost)
				if err != nil {
					return err
				}
				p := model.Principal{
					SchoolID:     school.ID,
					Username:     username,
					PasswordHash: hash,
					Role:         role,
					FullName:     flags[fullNameFlag].GetString(),
					IsActive:     true,
				}
				if err := st.Principals.Create(ctx, &p); err != nil {
					return fmt.Errorf("create principal: %w", err)
				}
				fmt.Fprintf(a.out, "principal %s (%s) created with id %d\n", p.Username, p.Role, p.ID)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func newResetPasswordCommand(a *cli) *cobra.Command {
	flags := principalFlags()
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for a principal; the password is prompted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, username, err := requirePrincipal(flags)
			if err != nil {
				return err
			}
			pwd, err := a.promptPassword()
			if err != nil {
				return err
			}
			return a.withStores(cmd, func(ctx context.Context, st *stores) error {
				p, err := findPrincipal(ctx, st, code, username)
				if err != nil {
					return err
				}
				hash, err := auth.HashPassword(pwd, st.BcryptCost)
				if err != nil {
					return err
				}
				if err := st.Principals.UpdatePassword(ctx, p.ID, hash); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "password of %s updated\n", p.Username)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func newDeactivateUserCommand(a *cli) *cobra.Command {
	flags := principalFlags()
	cmd := &cobra.Command{
		Use:   "deactivate-user",
		Short: "Deactivate a principal and revoke its refresh tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, username, err := requirePrincipal(flags)
			if err != nil {
				return err
			}
			return a.withStores(cmd, func(ctx context.Context, st *stores) error {
				p, err := findPrincipal(ctx, st, code, username)
				if err != nil {
					return err
				}
				if err := st.Principals.SetActive(ctx, p.ID, false); err != nil {
					return err
				}
				n, err := st.Tokens.RevokeAllForPrincipal(ctx, p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s deactivated, %d refresh tokens revoked\n", p.Username, n)
				return nil
			})
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func newPurgeTokensCommand(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired refresh token records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStores(cmd, func(ctx context.Context, st *stores) error {
				n, err := st.Tokens.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%d expired refresh tokens purged\n", n)
				return nil
			})
		},
	}
}

func requirePrincipal(flags map[string]cobraflags.Flag) (code, username string, err error) {
	code = flags[schoolFlag].GetString()
	username = flags[usernameFlag].GetString()
	if code == "" || username == "" {
		return "", "", errors.New("--school and --username are required")
	}
	return code, username, nil
}

func findPrincipal(ctx context.Context, st *stores, code, username string) (model.Principal, error) {
	school, err := st.Schools.GetByCode(ctx, code)
	if err != nil {
		return model.Principal{}, fmt.Errorf("school %s: %w", code, err)
	}
	p, err := st.Principals.GetByUsername(ctx, school.ID, username)
	if err != nil {
		return model.Principal{}, fmt.Errorf("principal %s: %w", username, err)
	}
	return p, nil
}
