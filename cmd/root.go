package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	kerrors "github.com/agenix-go/agenix/internal/errors"
	"github.com/agenix-go/agenix/internal/identity"
	logger "github.com/agenix-go/agenix/internal/logging"
	"github.com/agenix-go/agenix/internal/rules"
	"github.com/agenix-go/agenix/internal/ui"
	"github.com/agenix-go/agenix/internal/workflows"
)

const defaultRulesFile = "./secrets.nix"

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	editSecret      string
	rekey           bool
	printSchema     bool
	identityPaths   []string
	rulesFile       string
	editorCommand   string
	continueOnError bool

	rootCmd = &cobra.Command{
		Use:   "agenix",
		Short: "Edit and rekey age-encrypted secrets referenced by a Nix rule set",
		Long: `agenix manages encrypted secret files referenced by a declarative rule set
(conventionally secrets.nix), letting you edit plaintext secrets safely and
re-encrypt them for a changing set of authorized recipients.

Plaintext only ever exists in an ephemeral owner-only directory while your
editor is open, and ciphertext files are replaced atomically.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing agenix with verbose=%t, debug=%t", verbose, debug)
		},
		RunE: run,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	rootCmd.Flags().StringVarP(&editSecret, "edit", "e", "", "edit the secret with the given name")
	rootCmd.Flags().BoolVarP(&rekey, "rekey", "r", false, "re-encrypt all existing secrets for their current recipients")
	rootCmd.Flags().BoolVarP(&printSchema, "schema", "s", false, "print the rules schema and exit")
	rootCmd.Flags().StringArrayVarP(&identityPaths, "identity", "i", nil, "identity (private key) file, may be repeated")
	rootCmd.Flags().StringVar(&rulesFile, "rules", "", "rules file to use (default \"./secrets.nix\", or $RULES)")
	rootCmd.Flags().StringVar(&editorCommand, "editor", "", "editor command (default $EDITOR)")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "keep rekeying remaining secrets when one fails")
}

// Execute runs the root command and reports failures on stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if errors.Is(err, kerrors.ErrInvalidRecipient) {
			fmt.Fprintln(os.Stderr, ui.Info.Sprint(rules.RecipientHint))
		}
	}
	return err
}

func run(cmd *cobra.Command, args []string) error {
	if printSchema {
		if editSecret != "" || rekey {
			return fmt.Errorf("--schema cannot be combined with --edit or --rekey")
		}
		return rules.PrintSchema(os.Stdout)
	}
	if (editSecret != "") == rekey {
		return fmt.Errorf("specify exactly one of --edit, --rekey or --schema")
	}
	if editSecret != "" && len(args) > 0 {
		return fmt.Errorf("unexpected arguments after --edit: %v", args)
	}

	store, err := loadRules(cmd)
	if err != nil {
		return err
	}

	resolver := &identity.Resolver{
		Paths:   identityPaths,
		HomeDir: homeDir(),
		Logger:  Logger,
	}

	if rekey {
		_, err := workflows.Rekey(cmd.Context(), workflows.RekeyOptions{
			Store:           store,
			Identities:      resolver,
			Only:            args,
			ContinueOnError: continueOnError,
			Stdout:          os.Stdout,
			Logger:          Logger,
		})
		return err
	}

	_, err = workflows.Edit(cmd.Context(), workflows.EditOptions{
		Secret:     editSecret,
		Store:      store,
		Identities: resolver,
		Editor:     editor(),
		Stdout:     os.Stdout,
		Logger:     Logger,
	})
	return err
}

// loadRules evaluates the rules file and builds the validated store. The
// spinner goes to stderr; stdout carries only the output contract.
func loadRules(cmd *cobra.Command) (*rules.Store, error) {
	file := rulesPath()
	Logger.Debugf("Evaluating rules file %s", file)

	stop := startSpinner(fmt.Sprintf("Evaluating %s...", file))
	doc, err := rules.NixEvaluator{}.Evaluate(cmd.Context(), file)
	stop()
	if err != nil {
		return nil, err
	}

	store, err := rules.Load(doc, file)
	if err != nil {
		return nil, err
	}
	Logger.Infof("Loaded %d rule entry(ies) from %s", store.Len(), ui.Path.Sprint(file))
	return store, nil
}

func rulesPath() string {
	if rulesFile != "" {
		return rulesFile
	}
	if env := os.Getenv("RULES"); env != "" {
		return env
	}
	return defaultRulesFile
}

func editor() string {
	if editorCommand != "" {
		return editorCommand
	}
	return os.Getenv("EDITOR")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		Logger.Debugf("no home directory: %v", err)
		return ""
	}
	return home
}
