package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vito/drape/pkg/config"
	"github.com/vito/drape/pkg/ioctx"
	"github.com/vito/drape/pkg/rawtree"
	"github.com/vito/drape/pkg/sitter"
)

func treeCmd() *cobra.Command {
	var (
		language   string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "tree [flags] FILE|-",
		Short: "Print the syntax tree of a file as JSON",
		Long: `Parse a file and print its syntax tree in the JSON tree format read by
"drape fmt --tree". Every node carries its kind, whether it is named and its
byte range; leaves also carry their text.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			cfg, err := config.Fetch(configPath, config.Merge)
			if err != nil {
				return err
			}
			var lang *config.Language
			switch {
			case language != "":
				lang, err = cfg.Language(language)
			case path == "-":
				err = fmt.Errorf("reading stdin requires --language")
			default:
				lang, err = cfg.Detect(path)
			}
			if err != nil {
				return err
			}

			var source []byte
			if path == "-" {
				source, err = io.ReadAll(ioctx.StdinFromContext(ctx))
			} else {
				source, err = os.ReadFile(path)
			}
			if err != nil {
				return err
			}

			fe, err := sitter.New(lang.GrammarName(), "")
			if err != nil {
				return err
			}
			defer fe.Close()

			tree, err := fe.ParseTree(source)
			if err != nil {
				return err
			}
			out, err := rawtree.Marshal(tree)
			if err != nil {
				return err
			}
			_, err = ioctx.StdoutFromContext(ctx).Write(out)
			return err
		},
	}

	cmd.Flags().StringVar(&language, "language", "", "Parse as this language instead of detecting by extension")
	cmd.Flags().StringVar(&configPath, "config", "", "Additional languages.toml with the highest priority")

	return cmd
}
