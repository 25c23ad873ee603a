package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/foodgram-dev/foodgram/backend/internal/service"
)

var ingredientsCmd = &cobra.Command{
	Use:   "ingredients FILE",
	Short: "Import ingredients from a name,measurement_unit CSV file",
	Long: `Import ingredients from a CSV file with name,measurement_unit rows.

Existing ingredients are kept as they are and incomplete rows are skipped.
Use - to read from standard input.

Examples:
  importer ingredients data/ingredients.csv
  importer ingredients --migrate - < ingredients.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0], (*service.Importer).ImportIngredients)
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags FILE",
	Short: "Import tags from a name,slug CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(cmd, args[0], (*service.Importer).ImportTags)
	},
}

func init() {
	rootCmd.AddCommand(ingredientsCmd)
	rootCmd.AddCommand(tagsCmd)
}

type importFunc func(im *service.Importer, ctx context.Context, r io.Reader) (service.ImportResult, error)

func runImport(cmd *cobra.Command, path string, run importFunc) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}

	result, err := run(service.NewImporter(db), cmd.Context(), r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", result.Created, result.Skipped)
	return nil
}
