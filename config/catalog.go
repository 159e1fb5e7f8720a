package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/luckinnnn/Model-Fine-Tuning-Platform/entity"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// LoadCatalog 读取静态目录；path 为空时使用内置 catalog.yaml。
func LoadCatalog(path string) (entity.Catalog, error) {
	data := defaultCatalog
	if p := strings.TrimSpace(path); p != "" {
		raw, err := os.ReadFile(p)
		if err != nil {
			return entity.Catalog{}, fmt.Errorf("read catalog file failed: %w", err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (entity.Catalog, error) {
	var catalog entity.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return entity.Catalog{}, fmt.Errorf("unmarshal catalog failed: %w", err)
	}
	return catalog, nil
}
