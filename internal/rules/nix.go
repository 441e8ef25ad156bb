package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	kerrors "github.com/agenix-go/agenix/internal/errors"
)

// Source evaluates a rule definition file into a JSON-like document.
// Implementations own the external evaluator; the rest of the package only
// consumes the resulting document.
type Source interface {
	Evaluate(ctx context.Context, rulesFile string) (map[string]any, error)
}

// NixEvaluator evaluates a Nix rules file with nix-instantiate.
type NixEvaluator struct{}

// Evaluate runs nix-instantiate over the rules file and decodes the
// strictly-evaluated result as JSON.
func (NixEvaluator) Evaluate(ctx context.Context, rulesFile string) (map[string]any, error) {
	abs, err := filepath.Abs(rulesFile)
	if err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", kerrors.ErrRulesEval, rulesFile, err)
	}

	expr := "import " + strconv.Quote(abs)
	cmd := exec.CommandContext(ctx, "nix-instantiate", "--json", "--eval", "--strict", "-E", expr)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("%w: '%s': %s", kerrors.ErrRulesEval, rulesFile, detail)
	}

	var doc map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		return nil, fmt.Errorf("%w: '%s': %v", kerrors.ErrRulesEval, rulesFile, err)
	}
	return doc, nil
}
