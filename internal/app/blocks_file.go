package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samvad-hq/notion-blocks/pkg/notion"

	"gopkg.in/yaml.v3"
)

// LoadBlocks reads blocks to append from a YAML or JSON file. The file holds
// either a list of blocks or an object with a "children" list.
func LoadBlocks(path string) ([]notion.Block, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("blocks file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blocks file: %w", err)
	}
	return parseBlocks(raw, filepath.Ext(path))
}

func parseBlocks(data []byte, ext string) ([]notion.Block, error) {
	var doc any
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml blocks: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode json blocks: %w", err)
		}
	default:
		return nil, fmt.Errorf("blocks file format %q not recognized (expected YAML or JSON)", ext)
	}

	items, ok := doc.([]any)
	if obj, isObj := doc.(map[string]any); isObj {
		items, ok = obj["children"].([]any)
	}
	if !ok {
		return nil, errors.New("blocks file must contain a list of blocks or a children list")
	}

	blocks := make([]notion.Block, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("blocks[%d]: expected an object", i)
		}
		if typ, _ := m["type"].(string); typ == "" {
			return nil, fmt.Errorf("blocks[%d]: type is required", i)
		}
		blocks = append(blocks, notion.Block(m))
	}
	return blocks, nil
}
