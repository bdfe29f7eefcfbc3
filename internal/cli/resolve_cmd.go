package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/modelbake/fsprovider"
	"github.com/jonwraymond/modelbake/resource"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// resolution is the printed form of one lookup.
type resolution struct {
	Key      string            `json:"key" yaml:"key"`
	Found    bool              `json:"found" yaml:"found"`
	Source   string            `json:"source,omitempty" yaml:"source,omitempty"`
	Missing  bool              `json:"missing,omitempty" yaml:"missing,omitempty"`
	Chain    []string          `json:"chain,omitempty" yaml:"chain,omitempty"`
	Textures map[string]string `json:"textures,omitempty" yaml:"textures,omitempty"`
}

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve KEY...",
		Short: "Resolve keys against the pack and print the baked models",
		Long: `Resolve looks up each key through the artifact store. Keys are
"namespace:path" or "namespace:path#variant".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := cmd.Flags().GetString(FlagOutput)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close(ctx) }()

			out := make([]resolution, 0, len(args))
			for _, arg := range args {
				key, err := resource.ParseKey(arg)
				if err != nil {
					return err
				}
				art, ok := app.Store().Get(ctx, key)
				out = append(out, describe(key, art, ok))
			}
			return printResolutions(cmd.OutOrStdout(), format, out)
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}
	cmd.Flags().StringP(FlagOutput, "o", OutputText, "output format: text|json|yaml")
	return cmd
}

func describe(key resource.Key, art resource.Artifact, ok bool) resolution {
	r := resolution{Key: key.String(), Found: ok}
	m, isModel := art.(*fsprovider.Model)
	if !ok || !isModel {
		return r
	}
	r.Source = m.Key.String()
	r.Missing = m.Missing
	for _, k := range m.Chain {
		r.Chain = append(r.Chain, k.String())
	}
	if len(m.Textures) > 0 {
		r.Textures = make(map[string]string, len(m.Textures))
		for slot, tex := range m.Textures {
			r.Textures[slot] = fmt.Sprint(tex)
		}
	}
	return r
}

func printResolutions(w io.Writer, format string, rs []resolution) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rs)
	case OutputYAML:
		return printYAML(w, rs)
	case OutputText, "":
		for _, r := range rs {
			if _, err := fmt.Fprintln(w, r.text()); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (r resolution) text() string {
	switch {
	case !r.Found:
		return r.Key + ": not found"
	case r.Missing:
		return r.Key + ": missing"
	}
	slots := make([]string, 0, len(r.Textures))
	for slot := range r.Textures {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	s := fmt.Sprintf("%s -> %s", r.Key, r.Source)
	for _, slot := range slots {
		s += fmt.Sprintf(" %s=%s", slot, r.Textures[slot])
	}
	return s
}
