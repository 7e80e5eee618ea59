package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
	"github.com/britebottle/fleet/internal/store"
	"github.com/google/uuid"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage administrator accounts",
		Long:  "Create and list accounts on the highest-power role, directly against the document store.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new administrator account",
		Example: `  fleet admin create --email admin@example.com --password secret
  fleet admin create --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(email, password, name)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Admin display name")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(email, password, name string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	// Reconcile so default roles exist on a fresh document.
	if err := st.Reconcile("", slog.New(slog.NewTextHandler(os.Stderr, nil))); err != nil {
		return fmt.Errorf("reconcile store: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if name == "" {
		name = email
	}

	err = st.Update(func(doc *store.Document) error {
		for i := range doc.Users {
			if strings.EqualFold(doc.Users[i].Email, email) {
				return fmt.Errorf("account %q already exists", email)
			}
		}
		super := rbac.RoleByName(doc.Roles, rbac.RoleSuperAdmin)
		if super == nil {
			return fmt.Errorf("highest-power role missing from store")
		}
		approved := true
		doc.Users = append(doc.Users, model.User{
			ID:           uuid.NewString(),
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			RoleID:       super.ID,
			Approved:     &approved,
			Profile:      model.Profile{}.Normalized(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created administrator %q on role %s\n", email, rbac.RoleSuperAdmin)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	type userRow struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Role     string `json:"role"`
		Approved bool   `json:"approved"`
	}

	var rows []userRow
	err = st.View(func(doc *store.Document) error {
		for i := range doc.Users {
			u := &doc.Users[i]
			roleName := ""
			if role := rbac.RoleByID(doc.Roles, u.RoleID); role != nil {
				roleName = role.Name
			}
			rows = append(rows, userRow{
				Email:    u.Email,
				Name:     u.Name,
				Role:     roleName,
				Approved: u.IsApproved(),
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No accounts found. Use 'fleet admin create' to create one.")
		return nil
	}

	fmt.Printf("%-30s %-24s %-16s %-8s\n", "EMAIL", "NAME", "ROLE", "APPROVED")
	fmt.Printf("%-30s %-24s %-16s %-8s\n", "-----", "----", "----", "--------")
	for _, u := range rows {
		approved := "yes"
		if !u.Approved {
			approved = "no"
		}
		fmt.Printf("%-30s %-24s %-16s %-8s\n", u.Email, u.Name, u.Role, approved)
	}

	return nil
}
