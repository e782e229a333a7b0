package store

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"AIToolNews/internal/domain"
)

// LoadTargets reads the monitored roster. JSON is accepted as YAML, so the
// historical targets.json loads unchanged.
func LoadTargets(path string) ([]domain.TargetCategory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets %s: %w", path, err)
	}

	var categories []domain.TargetCategory
	if err := yaml.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("decode targets %s: %w", path, err)
	}

	out := categories[:0]
	for _, c := range categories {
		if strings.TrimSpace(c.Category) == "" || len(c.Tools) == 0 {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
