package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveGames updates the games section of the config file. Other sections
// keep their comments and formatting by editing the yaml.Node tree instead
// of re-marshaling the whole Config.
func SaveGames(configPath string, games []GameConfig) error {
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	gamesNode := buildGamesNode(games)

	if doc.Kind == 0 {
		// Empty or new file.
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "games"},
						gamesNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind == yaml.MappingNode {
			found := false
			for i := 0; i < len(root.Content)-1; i += 2 {
				if root.Content[i].Value == "games" {
					root.Content[i+1] = gamesNode
					found = true
					break
				}
			}
			if !found {
				root.Content = append(root.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: "games"},
					gamesNode,
				)
			}
		}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// writeAtomic writes data via a temp file and rename so a crash mid-write
// never leaves a truncated config behind.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".keydeck.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

func buildGamesNode(games []GameConfig) *yaml.Node {
	node := &yaml.Node{
		Kind:    yaml.SequenceNode,
		Content: make([]*yaml.Node, 0, len(games)),
	}

	for _, g := range games {
		gameNode := &yaml.Node{Kind: yaml.MappingNode}

		gameNode.Content = append(gameNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "name"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: g.Name},
		)

		if g.Label != "" {
			gameNode.Content = append(gameNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "label"},
				&yaml.Node{Kind: yaml.ScalarNode, Value: g.Label},
			)
		}

		if len(g.Environments) > 0 {
			envsNode := &yaml.Node{
				Kind:  yaml.SequenceNode,
				Style: yaml.FlowStyle,
			}
			for _, env := range g.Environments {
				envsNode.Content = append(envsNode.Content,
					&yaml.Node{Kind: yaml.ScalarNode, Value: env})
			}
			gameNode.Content = append(gameNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "environments"},
				envsNode,
			)
		}

		node.Content = append(node.Content, gameNode)
	}

	return node
}

// AddGame appends a new game preset and saves.
func AddGame(configPath string, newGame GameConfig, existing []GameConfig) error {
	for _, g := range existing {
		if g.Name == newGame.Name {
			return fmt.Errorf("game %q already exists", newGame.Name)
		}
	}
	return SaveGames(configPath, append(existing, newGame))
}

// UpdateGame replaces the game at the given index and saves.
func UpdateGame(configPath string, index int, newGame GameConfig, allGames []GameConfig) error {
	if index < 0 || index >= len(allGames) {
		return fmt.Errorf("game index %d out of range (have %d games)", index, len(allGames))
	}

	updated := make([]GameConfig, len(allGames))
	copy(updated, allGames)
	updated[index] = newGame

	return SaveGames(configPath, updated)
}

// DeleteGame removes the game at the given index and saves. Deleting the
// last game is allowed; defaults apply on the next load.
func DeleteGame(configPath string, index int, allGames []GameConfig) error {
	if index < 0 || index >= len(allGames) {
		return fmt.Errorf("game index %d out of range (have %d games)", index, len(allGames))
	}

	updated := make([]GameConfig, 0, len(allGames)-1)
	for i, g := range allGames {
		if i != index {
			updated = append(updated, g)
		}
	}

	return SaveGames(configPath, updated)
}

// RenameGame changes a game's display label and saves.
func RenameGame(configPath string, index int, newLabel string, allGames []GameConfig) error {
	if index < 0 || index >= len(allGames) {
		return fmt.Errorf("game index %d out of range (have %d games)", index, len(allGames))
	}

	allGames[index].Label = newLabel

	return SaveGames(configPath, allGames)
}
