package extract

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kensaku/internal/models"
)

// extractYAML decodes YAML or JSON; JSON documents are valid YAML.
func extractYAML(content []byte) (*models.Catalog, error) {
	catalog := &models.Catalog{}
	if len(bytes.TrimSpace(content)) == 0 {
		return catalog, nil
	}
	if err := yaml.Unmarshal(sanitize(content), catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return catalog, nil
}
