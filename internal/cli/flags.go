package cli

import (
	"errors"
	"fmt"
	"strings"

	"trackflow-cli/internal/model"

	"github.com/spf13/cobra"
)

var errNothingToUpdate = errors.New("nothing to update: pass at least one field flag")

type invalidChoiceError struct {
	what    string
	value   string
	allowed []string
}

func (e invalidChoiceError) Error() string {
	return fmt.Sprintf("invalid %s %q (allowed: %s)", e.what, e.value, strings.Join(e.allowed, ", "))
}

// fieldFlag maps a command-line flag onto a record field's wire name.
type fieldFlag struct {
	flag    string
	field   string
	usage   string
	// choices, when set, lets the value be written loosely ("in-development").
	choices []string
}

func bindFlags(cmd *cobra.Command, flags []fieldFlag, values []string) {
	for i, f := range flags {
		cmd.Flags().StringVar(&values[i], f.flag, "", f.usage)
	}
}

// applyFlags sets every flag the user passed through set, in flag order.
func applyFlags(cmd *cobra.Command, flags []fieldFlag, values []string, set func(field, value string) error) error {
	for i, f := range flags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		v := values[i]
		if f.choices != nil {
			v, _ = canonicalChoice(v, f.choices)
		}
		if err := set(f.field, v); err != nil {
			return fmt.Errorf("--%s: %w", f.flag, err)
		}
	}
	return nil
}

func changedFields(cmd *cobra.Command, flags []fieldFlag) []string {
	var out []string
	for _, f := range flags {
		if cmd.Flags().Changed(f.flag) {
			out = append(out, f.field)
		}
	}
	return out
}

func argID(s string) model.ID { return model.ID(strings.TrimSpace(s)) }

// filterMeta echoes the non-empty filter values back in the response meta.
func filterMeta(kv ...string) map[string]string {
	out := map[string]string{}
	for i := 0; i+1 < len(kv); i += 2 {
		if v := strings.TrimSpace(kv[i+1]); v != "" {
			out[kv[i]] = v
		}
	}
	return out
}

type deleted struct {
	ID      model.ID `json:"id"`
	Deleted bool     `json:"deleted"`
}

func (d deleted) Header() []string { return []string{"id", "deleted"} }
func (d deleted) Rows() [][]string { return [][]string{{d.ID.String(), "true"}} }
