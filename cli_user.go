package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"catalogadmin/model"
	"catalogadmin/rbac"
	"catalogadmin/services"
	"catalogadmin/usecase"
	"catalogadmin/utils"

	"github.com/spf13/cobra"
)

// cliActor is recorded in the audit log for changes made from the command line.
var cliActor = usecase.Actor{
	UserID:      "cli",
	Role:        rbac.RoleAdmin,
	RequestInfo: usecase.RequestInfo{IP: "local", UserAgent: "catalogadmin-cli"},
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage back-office users",
	}
	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserSetRoleCmd())
	cmd.AddCommand(newUserSetActiveCmd())
	cmd.AddCommand(newUserSetPasswordCmd())
	return cmd
}

// withApp runs fn against a fully wired app and closes it afterwards so the
// audit queue is flushed before the process exits.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	return fn(a)
}

func readPassword(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	password := strings.TrimSpace(string(b))
	if password == "" {
		return "", fmt.Errorf("empty password on stdin")
	}
	return password, nil
}

func newUserCreateCmd() *cobra.Command {
	var (
		name          string
		role          string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create <email>",
		Short: "Create one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := utils.NormalizeEmail(args[0])
			if !rbac.NormalizeRole(role).Canonical() {
				return fmt.Errorf("unknown role %q", role)
			}

			var password string
			if passwordStdin {
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = p
			}

			return withApp(cmd.Context(), func(a *app) error {
				if utils.Validate.Var(email, "required,email") != nil {
					return fmt.Errorf("invalid email %q", args[0])
				}
				user, err := a.admin.Create(cmd.Context(), usecase.CreateUserInput{
					Email:       email,
					DisplayName: name,
					Password:    password,
					Role:        role,
				}, cliActor)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) role=%s\n", user.Email, user.UserID, user.Role)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(rbac.RoleEditor), "role: admin, editor or analista")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				users, err := a.admin.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, u := range users {
					writeUserLine(cmd.OutOrStdout(), u)
				}
				return nil
			})
		},
	}
}

func writeUserLine(w io.Writer, u *model.User) {
	status := "active"
	if !u.Active {
		status = "disabled"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.UserID, u.Email, u.Role, status)
}

func findByEmail(ctx context.Context, a *app, email string) (*model.User, error) {
	user, err := a.users.FindUserByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("no user with email %q", email)
	}
	return user, nil
}

func newUserSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <email> <role>",
		Short: "Change the role of one user and end their sessions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app) error {
				user, err := findByEmail(cmd.Context(), a, args[0])
				if err != nil {
					return err
				}
				if err := a.admin.SetRole(cmd.Context(), user.UserID, args[1], cliActor); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", user.Email, rbac.NormalizeRole(args[1]))
				return err
			})
		},
	}
}

func newUserSetActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-active <email> <true|false>",
		Short: "Enable or disable one user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("invalid active flag %q", args[1])
			}
			return withApp(cmd.Context(), func(a *app) error {
				user, err := findByEmail(cmd.Context(), a, args[0])
				if err != nil {
					return err
				}
				if err := a.admin.SetActive(cmd.Context(), user.UserID, active, cliActor); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s active=%t\n", user.Email, active)
				return err
			})
		},
	}
}

func newUserSetPasswordCmd() *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "set-password <email>",
		Short: "Reset the password of one user and end their sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !passwordStdin {
				return fmt.Errorf("the new password is read from stdin, pass --password-stdin")
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if !utils.ValidatePassword(password) {
				return services.ErrWeakPassword
			}
			return withApp(cmd.Context(), func(a *app) error {
				user, err := findByEmail(cmd.Context(), a, args[0])
				if err != nil {
					return err
				}
				if err := a.admin.ResetPassword(cmd.Context(), user.UserID, password, cliActor); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s\n", user.Email)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	return cmd
}
