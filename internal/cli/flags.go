package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/CTAG07/cmarkov/internal/config"
)

// addModelFlags registers the flags that override the model section of the
// config on cmd.
func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().Int("length", 0, "Sentence length (default: from config, 0 picks the most common)")
	cmd.Flags().String("constraint", "", "Constraint kind: none, pattern, letters, syllables")
	cmd.Flags().String("tags", "", "Comma-separated constraint tags, one per position")
	cmd.Flags().Bool("fold-case", false, "Match pattern tags case-insensitively")
	cmd.Flags().Bool("no-repeat", false, "Forbid a word from directly following itself")
	cmd.Flags().Int("max-runes", 0, "Forbid words longer than this many runes")
}

// applyModelFlags copies the model flags the user set on cmd into mc.
func applyModelFlags(cmd *cobra.Command, mc *config.ModelConfig) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	if changed("length") {
		if mc.Length, err = flags.GetInt("length"); err != nil {
			return err
		}
	}
	if changed("constraint") {
		if mc.Constraint, err = flags.GetString("constraint"); err != nil {
			return err
		}
	}
	if changed("tags") {
		raw, err := flags.GetString("tags")
		if err != nil {
			return err
		}
		mc.Tags = splitTags(raw)
	}
	if changed("fold-case") {
		if mc.FoldCase, err = flags.GetBool("fold-case"); err != nil {
			return err
		}
	}
	if changed("no-repeat") {
		if mc.NoRepeat, err = flags.GetBool("no-repeat"); err != nil {
			return err
		}
	}
	if changed("max-runes") {
		if mc.MaxRunes, err = flags.GetInt("max-runes"); err != nil {
			return err
		}
	}
	return nil
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	tags := strings.Split(raw, ",")
	for i, t := range tags {
		tags[i] = strings.TrimSpace(t)
	}
	return tags
}
