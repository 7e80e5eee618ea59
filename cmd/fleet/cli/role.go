package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/britebottle/fleet/internal/model"
	"github.com/britebottle/fleet/internal/rbac"
	"github.com/britebottle/fleet/internal/store"
)

func newRoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Manage roles",
		Long:  "List and create the power-ranked roles that control what users can see and do.",
	}

	cmd.AddCommand(newRoleListCmd())
	cmd.AddCommand(newRoleCreateCmd())

	return cmd
}

// ---------- role list ----------

func newRoleListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runRoleList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	roles, err := st.Roles()
	if err != nil {
		return fmt.Errorf("list roles: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(roles)
	}

	if len(roles) == 0 {
		fmt.Println("No roles configured. Start the server once to seed the defaults.")
		return nil
	}

	fmt.Printf("%-20s %-8s %-12s %-12s\n", "NAME", "POWER", "MANAGE", "ASSIGN")
	fmt.Printf("%-20s %-8s %-12s %-12s\n", "----", "-----", "------", "------")
	for _, r := range roles {
		fmt.Printf("%-20s %-8d %-12s %-12s\n", r.Name, r.Power,
			yesNo(r.Permissions.CanManageRoles), yesNo(r.Permissions.CanAssignRoles))
	}

	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// ---------- role create ----------

func newRoleCreateCmd() *cobra.Command {
	var (
		name  string
		power int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new role",
		Long: `Create a role with the lowest-privilege permission template. Permissions
can then be edited through the API by a user whose role outranks it.`,
		Example: `  fleet role create --name Operator --power 45`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoleCreate(name, power)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Role name (required)")
	cmd.Flags().IntVar(&power, "power", 10, "Role power rank")
	cmd.MarkFlagRequired("name")

	return cmd
}

func runRoleCreate(name string, power int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	role := model.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Power:       power,
		Permissions: rbac.LowestPrivilegeTemplate(),
	}

	err = st.Update(func(doc *store.Document) error {
		if rbac.RoleByName(doc.Roles, name) != nil {
			return fmt.Errorf("role %q already exists", name)
		}
		doc.Roles = append(doc.Roles, role)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created role %q (power=%d)\n", name, power)
	return nil
}
