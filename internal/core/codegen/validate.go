package codegen

import (
	"context"
	"fmt"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// ValidateManifest runs a generated manifest through the compose
// loader so malformed output fails here instead of at deploy time.
func ValidateManifest(ctx context.Context, content []byte) error {
	var dict map[string]any
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return fmt.Errorf("manifest is not valid YAML: %w", err)
	}
	if dict == nil {
		return fmt.Errorf("manifest is empty")
	}

	_, err := loader.LoadWithContext(ctx, types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{Content: content, Config: dict},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("topdeck-plan", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true
		// In-memory content: nothing to normalize or extend.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return fmt.Errorf("manifest failed compose validation: %w", err)
	}
	return nil
}
