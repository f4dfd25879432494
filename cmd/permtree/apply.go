package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/permtree/permtree/pkg/logging"
	"github.com/permtree/permtree/pkg/roles"
	"github.com/permtree/permtree/pkg/rules"
	"github.com/permtree/permtree/pkg/walker"
)

var applyCmd = &cobra.Command{
	Use:   "apply <root>",
	Short: "Apply ownership and permission rules to a directory tree",
	Long: `Apply walks the tree rooted at <root>, matches every regular file and
directory against the rule file in order, and sets ownership and mode
according to the first matching rule's role. Symlinks and special files
are skipped. Per-entry failures are warnings; the run only aborts on
configuration or rule validation errors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.GetLogger("cmd.apply")
		root := args[0]

		registry, err := loadRoles()
		if err != nil {
			return err
		}

		table, err := loadRules(registry)
		if err != nil {
			return err
		}

		logger.Info().
			Str("root", root).
			Int("rules", table.Len()).
			Int("roles", registry.Len()).
			Bool("dryRun", dryRun).
			Msg("Starting traversal")

		w := walker.New(afero.NewOsFs(), table, dryRun)
		sum, err := w.Walk(root)
		if err != nil {
			return err
		}

		if dryRun {
			renderPlan(sum.Planned)
		}
		fmt.Printf("%d entries, %d changed, %d no-op, %d unmatched, %d skipped, %d warnings\n",
			sum.Entries, sum.Applied, sum.NoOps, sum.Unmatched, sum.Skipped, sum.Warnings)
		return nil
	},
}

func init() {
	applyCmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "Rule file to apply (\"-\" for stdin)")
	applyCmd.Flags().StringVar(&rolesPath, "roles", "", "Role configuration file (default: XDG config dir, then /etc/permtree/roles.toml)")
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show planned changes without applying them")
	_ = applyCmd.MarkFlagRequired("rules")
}

func loadRoles() (*roles.Registry, error) {
	path := rolesPath
	if path == "" {
		path = roles.DefaultConfigPath()
	}
	return roles.LoadConfigFile(path, roles.OSResolver{})
}

func loadRules(registry *roles.Registry) (*rules.Table, error) {
	var src io.Reader
	if rulesPath == "-" {
		src = os.Stdin
	} else {
		f, err := os.Open(rulesPath)
		if err != nil {
			return nil, fmt.Errorf("open rule file: %w", err)
		}
		defer f.Close()
		src = f
	}
	return rules.Load(src, registry)
}

// renderPlan prints the dry-run change plan as a table.
func renderPlan(planned []walker.Change) {
	if len(planned) == 0 {
		pterm.Info.Println("Nothing to change")
		return
	}
	data := pterm.TableData{{"PATH", "ROLE", "OWNER", "MODE"}}
	for _, c := range planned {
		data = append(data, []string{
			c.Rel,
			c.Role,
			fmt.Sprintf("%d:%d", c.UID, c.GID),
			fmt.Sprintf("%04o", c.Mode.Perm()),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}
