package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"dialogue-backend/internal/catalog"
	"dialogue-backend/internal/models"
)

var seedFile string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage AI models and model versions",
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create missing models and versions",
	Long: `Create every model and version listed in a YAML seed file. Rows that
already exist are left alone, so seeding is safe to repeat.

Without --file the full built-in allow-list is seeded.

Seed file format:
  models:
    - name: chatgpt
      versions: [gpt-4o, gpt-4o-mini]
    - name: gemini
      versions: [gemini-2.0-flash]`,
	Args: cobra.NoArgs,
	RunE: runCatalogSeed,
}

var catalogAddModelCmd = &cobra.Command{
	Use:   "add-model <family>",
	Short: "Register a model family (chatgpt, gemini)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogAddModel,
}

var catalogAddVersionCmd = &cobra.Command{
	Use:   "add-version <family> <version>",
	Short: "Register a version under an existing model family",
	Args:  cobra.ExactArgs(2),
	RunE:  runCatalogAddVersion,
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models and their versions",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

func init() {
	catalogSeedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML seed file")

	catalogCmd.AddCommand(catalogSeedCmd)
	catalogCmd.AddCommand(catalogAddModelCmd)
	catalogCmd.AddCommand(catalogAddVersionCmd)
	catalogCmd.AddCommand(catalogListCmd)
}

// loadSeed reads a seed file, or builds one from the allow-list when path is empty.
func loadSeed(path string) (models.CatalogSeed, error) {
	var seed models.CatalogSeed
	if path == "" {
		for _, family := range catalog.Families() {
			seed.Models = append(seed.Models, models.CatalogSeedModel{
				Name:     family,
				Versions: catalog.KnownVersions(family),
			})
		}
		return seed, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return seed, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if len(seed.Models) == 0 {
		return seed, fmt.Errorf("seed file %s lists no models", path)
	}
	return seed, nil
}

func runCatalogSeed(cmd *cobra.Command, args []string) error {
	seed, err := loadSeed(seedFile)
	if err != nil {
		return err
	}

	res, err := app.catalog.Seed(cmd.Context(), seed)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Seeded catalog: %d models, %d versions created\n", res.ModelsCreated, res.VersionsCreated)
	return nil
}

func runCatalogAddModel(cmd *cobra.Command, args []string) error {
	m, err := app.catalog.CreateAIModel(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("add model: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created model: %s (%d)\n", m.Name, m.ID)
	return nil
}

func runCatalogAddVersion(cmd *cobra.Command, args []string) error {
	v, err := app.catalog.CreateModelVersion(cmd.Context(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("add version: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created version: %s/%s (%d)\n", args[0], v.Name, v.ID)
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	aiModels, err := app.catalog.ListAIModels(ctx)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if len(aiModels) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No models registered. Run: dialogue-admin catalog seed")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL ID\tMODEL\tVERSION ID\tVERSION")
	for _, m := range aiModels {
		versions, err := app.catalog.ListModelVersions(ctx, m.ID)
		if err != nil {
			return fmt.Errorf("list versions of %s: %w", m.Name, err)
		}
		if len(versions) == 0 {
			fmt.Fprintf(w, "%d\t%s\t-\t-\n", m.ID, m.Name)
			continue
		}
		for _, v := range versions {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", m.ID, m.Name, v.ID, v.Name)
		}
	}
	return w.Flush()
}
