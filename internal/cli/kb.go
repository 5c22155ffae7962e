package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/sanhita/internal/kb"
	"github.com/spf13/cobra"
)

var (
	kbCategory   string
	kbProcedural bool
	kbKeywords   bool
)

// kbCmd represents the kb command
var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect the knowledge base",
}

var kbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge base entries",
	Long: `List the BNS offense entries of the knowledge base, or the BNSS procedural
topics with --procedural.

Example:
  sanhita kb list
  sanhita kb list --category propertyOffences --keywords
  sanhita kb list --procedural
  sanhita kb list --kb ./custom-kb.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := loadKB(config.KB.Path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if kbProcedural {
			return listProcedural(out, base)
		}
		return listSubstantive(out, base, kbCategory, kbKeywords)
	},
}

func init() {
	rootCmd.AddCommand(kbCmd)
	kbCmd.AddCommand(kbListCmd)

	kbListCmd.Flags().StringVar(&kbCategory, "category", "", "only list offenses in this category")
	kbListCmd.Flags().BoolVar(&kbProcedural, "procedural", false, "list BNSS procedural topics instead of offenses")
	kbListCmd.Flags().BoolVar(&kbKeywords, "keywords", false, "include matching keywords")
}

func loadKB(path string) (*kb.KnowledgeBase, error) {
	if path == "" {
		return kb.Default()
	}
	return kb.LoadFile(path)
}

func listSubstantive(out io.Writer, base *kb.KnowledgeBase, category string, keywords bool) error {
	if category != "" && !hasCategory(base, category) {
		return fmt.Errorf("unknown category %q (available: %s)", category, strings.Join(base.Categories(), ", "))
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "CATEGORY\tSECTION\tOFFENSE"
	if keywords {
		header += "\tKEYWORDS"
	}
	fmt.Fprintln(w, header)

	for _, e := range base.Substantive() {
		if category != "" && e.Category != category {
			continue
		}
		row := fmt.Sprintf("%s\t%s\t%s", e.Category, e.Section, e.Offense)
		if keywords {
			row += "\t" + strings.Join(e.Keywords, ", ")
		}
		fmt.Fprintln(w, row)
	}
	return w.Flush()
}

func listProcedural(out io.Writer, base *kb.KnowledgeBase) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tSECTION\tTOPIC\tTITLE")
	for _, e := range base.Procedural() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Category, e.Section, e.Topic, e.Title)
	}
	return w.Flush()
}

func hasCategory(base *kb.KnowledgeBase, category string) bool {
	for _, c := range base.Categories() {
		if c == category {
			return true
		}
	}
	return false
}
